package chat

import (
	"context"

	"github.com/matheus3301/chatstore/internal/bus"
	"github.com/matheus3301/chatstore/internal/notify"
	"go.uber.org/zap"
)

// LoadConversation fetches contactID's history and, if contactID is still
// selected when the response arrives, replaces the conversation cache and
// marks the contact read. Responses for a contact that is no longer selected
// are discarded.
func (s *Store) LoadConversation(ctx context.Context, contactID string) error {
	defer s.beginFetch(&s.conversationInflight)()

	msgs, err := s.api.ListMessages(ctx, contactID)
	if err != nil {
		s.fail("load conversation", err)
		return wrap("load conversation", err)
	}

	s.mu.Lock()
	if !s.isSelectedLocked(contactID) {
		s.mu.Unlock()
		s.logger.Debug("discarding stale conversation", zap.String("contact_id", contactID))
		return nil
	}
	s.messages = cloneMessages(msgs)
	if s.messages == nil {
		s.messages = []Message{}
	}
	s.unread.Clear(contactID)
	s.persistLocked()
	s.mu.Unlock()

	s.publish(bus.KindConversationLoaded, contactID)
	return nil
}

// SendMessage posts msg to the selected contact and appends the message the
// server returns. The local payload is never inserted. Failures are surfaced
// and not retried.
func (s *Store) SendMessage(ctx context.Context, msg OutgoingMessage) (Message, error) {
	sel, ok := s.Selected()
	if !ok {
		s.notifier.Notify(notify.Error, ErrNoSelection.Error())
		return Message{}, ErrNoSelection
	}

	sent, err := s.api.SendMessage(ctx, sel.ID, msg)
	if err != nil {
		s.fail("send message", err)
		return Message{}, wrap("send message", err)
	}

	s.mu.Lock()
	appended := s.isSelectedLocked(sel.ID)
	if appended {
		s.messages = append(s.messages, sent)
		s.persistLocked()
	} else {
		s.logger.Debug("selection moved before send completed", zap.String("contact_id", sel.ID))
	}
	s.mu.Unlock()

	if appended {
		s.publish(bus.KindMessageAppended, sent)
	}
	return sent, nil
}

// Messages returns a copy of the conversation cache.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.messages)
}
