package chat

import (
	"github.com/matheus3301/chatstore/internal/bus"
	"github.com/matheus3301/chatstore/internal/notify"
	"go.uber.org/zap"
)

// UnreadChange is the payload of store.unread_changed events.
type UnreadChange struct {
	ContactID string
	Count     int
}

// RecordInbound folds a pushed message into the store. Messages to or from
// the selected contact join the conversation; anything else is buffered
// under its sender and announced.
func (s *Store) RecordInbound(in Inbound) Route {
	msg := in.Message
	if msg.SenderID == "" {
		s.logger.Warn("dropping inbound message without sender", zap.String("msg_id", msg.ID))
		return RouteDropped
	}

	s.mu.Lock()
	if s.selected != nil && msg.Involves(s.selected.ID) {
		s.messages = append(s.messages, msg)
		s.persistLocked()
		s.mu.Unlock()
		s.publish(bus.KindMessageAppended, msg)
		return RouteConversation
	}

	entry := s.unread.Record(msg)
	name := in.SenderName
	if name == "" {
		if c, ok := s.contactLocked(msg.SenderID); ok {
			name = c.Name()
		} else {
			name = msg.SenderID
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notifier.Notify(notify.Info, "New message from "+name)
	s.publish(bus.KindUnreadChanged, UnreadChange{ContactID: msg.SenderID, Count: entry.Count})
	return RouteUnread
}

// ClearUnread resets one contact's unread entry.
func (s *Store) ClearUnread(contactID string) {
	s.mu.Lock()
	s.unread.Clear(contactID)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(bus.KindUnreadChanged, UnreadChange{ContactID: contactID})
}

// Unread returns a copy of one contact's entry.
func (s *Store) Unread(contactID string) UnreadEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread.Entry(contactID)
}

// UnreadTotal sums unread messages across contacts.
func (s *Store) UnreadTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread.Total()
}

// UnreadCounts is the per-contact badge projection of the ledger.
func (s *Store) UnreadCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread.Counts()
}
