package chat

import (
	"context"
	"slices"

	"github.com/matheus3301/chatstore/internal/bus"
	"go.uber.org/zap"
)

// LoadContacts replaces the contact list with the directory API's answer.
// On failure the previous list is kept and the server message is surfaced.
func (s *Store) LoadContacts(ctx context.Context) error {
	defer s.beginFetch(&s.contactsInflight)()

	contacts, err := s.api.ListContacts(ctx)
	if err != nil {
		s.fail("load contacts", err)
		return wrap("load contacts", err)
	}

	s.mu.Lock()
	s.contacts = slices.Clone(contacts)
	if s.contacts == nil {
		s.contacts = []Contact{}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("contacts loaded", zap.Int("count", len(contacts)))
	return nil
}

// SelectContact opens c's conversation and clears its unread entry in the
// same critical section. The caller loads the conversation afterwards.
func (s *Store) SelectContact(c Contact) {
	s.mu.Lock()
	changed := !s.isSelectedLocked(c.ID)
	s.selected = cloneContact(&c)
	s.unread.Clear(c.ID)
	if changed {
		s.messages = []Message{}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.publish(bus.KindSelectionChanged, c.ID)
}

// SelectContactByID selects a contact from the loaded directory.
func (s *Store) SelectContactByID(id string) (Contact, error) {
	s.mu.Lock()
	c, ok := s.contactLocked(id)
	s.mu.Unlock()
	if !ok {
		return Contact{}, wrap(id, ErrUnknownContact)
	}
	s.SelectContact(c)
	return c, nil
}

// ClearSelection closes the open conversation.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.messages = []Message{}
	s.persistLocked()
	s.mu.Unlock()

	s.publish(bus.KindSelectionChanged, "")
}

// Contacts returns a copy of the directory.
func (s *Store) Contacts() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.contacts)
}

// Contact looks a contact up by id.
func (s *Store) Contact(id string) (Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contactLocked(id)
}

// Selected returns the open conversation's contact, if any.
func (s *Store) Selected() (Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return Contact{}, false
	}
	return *s.selected, true
}

// FilteredContacts returns the directory, optionally restricted to contacts
// the presence set reports online. Without a presence source nobody is online.
func (s *Store) FilteredContacts(onlineOnly bool) []Contact {
	contacts := s.Contacts()
	if !onlineOnly {
		return contacts
	}
	return slices.DeleteFunc(contacts, func(c Contact) bool {
		return s.presence == nil || !s.presence.IsOnline(c.ID)
	})
}

// OnlineCount counts online users other than the local user.
func (s *Store) OnlineCount() int {
	if s.presence == nil {
		return 0
	}
	return s.presence.CountExcluding(s.selfID)
}
