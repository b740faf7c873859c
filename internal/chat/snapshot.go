package chat

import (
	"errors"
	"fmt"
)

// SnapshotVersion is stamped on every snapshot this build writes.
const SnapshotVersion = 1

// ErrInvariant marks a snapshot whose contents cannot be a valid store state.
var ErrInvariant = errors.New("snapshot violates store invariants")

// Snapshot is the full persistable state of a Store at one instant.
type Snapshot struct {
	Version             int                    `json:"version"`
	Contacts            []Contact              `json:"contacts"`
	Selected            *Contact               `json:"selected"`
	Messages            []Message              `json:"messages"`
	Unread              map[string]UnreadEntry `json:"unread"`
	ContactsLoading     bool                   `json:"contactsLoading"`
	ConversationLoading bool                   `json:"conversationLoading"`
}

// EmptySnapshot is the state of a fresh session.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Contacts: []Contact{},
		Messages: []Message{},
		Unread:   map[string]UnreadEntry{},
	}
}

// Validate checks the unread entries and the selected contact.
func (s Snapshot) Validate() error {
	if s.Selected != nil && s.Selected.ID == "" {
		return fmt.Errorf("%w: selected contact has no id", ErrInvariant)
	}
	for id, e := range s.Unread {
		if id == "" {
			return fmt.Errorf("%w: unread entry without contact id", ErrInvariant)
		}
		if err := e.validate(); err != nil {
			return fmt.Errorf("%w: unread entry %q: %v", ErrInvariant, id, err)
		}
	}
	return nil
}

// Normalize fills nil collections, drops transient loading flags and clears
// the selected contact's unread entry.
func (s Snapshot) Normalize() Snapshot {
	if s.Contacts == nil {
		s.Contacts = []Contact{}
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	unread := make(map[string]UnreadEntry, len(s.Unread))
	for id, e := range s.Unread {
		if e.Buffered == nil {
			e.Buffered = []Message{}
		}
		unread[id] = e
	}
	if s.Selected != nil {
		unread[s.Selected.ID] = UnreadEntry{Buffered: []Message{}}
	}
	s.Unread = unread
	s.ContactsLoading = false
	s.ConversationLoading = false
	return s
}
