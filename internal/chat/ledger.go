package chat

import (
	"fmt"
	"maps"
	"slices"
)

// UnreadEntry tracks messages from one contact that have not been shown.
// Count always equals len(Buffered).
type UnreadEntry struct {
	Count    int       `json:"count"`
	Buffered []Message `json:"buffered"`
}

// Empty reports whether the entry holds nothing unread.
func (e UnreadEntry) Empty() bool {
	return e.Count == 0 && len(e.Buffered) == 0
}

func (e UnreadEntry) clone() UnreadEntry {
	return UnreadEntry{Count: e.Count, Buffered: slices.Clone(e.Buffered)}
}

func (e UnreadEntry) validate() error {
	if e.Count < 0 {
		return fmt.Errorf("negative unread count %d", e.Count)
	}
	if e.Count != len(e.Buffered) {
		return fmt.Errorf("unread count %d does not match %d buffered messages", e.Count, len(e.Buffered))
	}
	return nil
}

// Ledger is the per-contact unread accounting. It is not safe for concurrent
// use; Store serializes access to it.
type Ledger struct {
	entries map[string]UnreadEntry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]UnreadEntry)}
}

// Record buffers msg under its sender and returns the updated entry.
func (l *Ledger) Record(msg Message) UnreadEntry {
	e := l.entries[msg.SenderID]
	e.Buffered = append(slices.Clone(e.Buffered), msg)
	e.Count = len(e.Buffered)
	l.entries[msg.SenderID] = e
	return e.clone()
}

// Clear resets a contact's entry to {0, []}.
func (l *Ledger) Clear(contactID string) {
	l.entries[contactID] = UnreadEntry{Buffered: []Message{}}
}

// Entry returns a copy of a contact's entry; unknown contacts read as empty.
func (l *Ledger) Entry(contactID string) UnreadEntry {
	return l.entries[contactID].clone()
}

// Total sums unread counts across contacts.
func (l *Ledger) Total() int {
	total := 0
	for _, e := range l.entries {
		total += e.Count
	}
	return total
}

// Counts projects the ledger onto bare per-contact counters, the shape a
// badge renders.
func (l *Ledger) Counts() map[string]int {
	counts := make(map[string]int, len(l.entries))
	for id, e := range l.entries {
		counts[id] = e.Count
	}
	return counts
}

// Entries returns a deep copy of every entry.
func (l *Ledger) Entries() map[string]UnreadEntry {
	out := make(map[string]UnreadEntry, len(l.entries))
	for id, e := range l.entries {
		out[id] = e.clone()
	}
	return out
}

// Contacts lists ids that have an entry, sorted.
func (l *Ledger) Contacts() []string {
	return slices.Sorted(maps.Keys(l.entries))
}

// LedgerFrom builds a ledger from entries, rejecting any that break the
// count/buffer invariant.
func LedgerFrom(entries map[string]UnreadEntry) (*Ledger, error) {
	l := NewLedger()
	for id, e := range entries {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("unread entry %q: %w", id, err)
		}
		if e.Buffered == nil {
			e.Buffered = []Message{}
		}
		l.entries[id] = e.clone()
	}
	return l, nil
}
