// Package realtime folds server-pushed messages into the chat store.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/push"
	"go.uber.org/zap"
)

// EventNewMessage is the push event carrying one inbound message.
const EventNewMessage = "newMessage"

// State is the reconciler's subscription state.
type State string

const (
	Unsubscribed State = "UNSUBSCRIBED"
	Subscribed   State = "SUBSCRIBED"
)

// Channel is the push event source.
type Channel interface {
	On(event string, h push.Handler) push.Token
	Off(tok push.Token)
}

// Inbox receives decoded inbound messages.
type Inbox interface {
	RecordInbound(in chat.Inbound) chat.Route
}

// Reconciler owns the single newMessage registration on the push channel.
type Reconciler struct {
	ch     Channel
	inbox  Inbox
	logger *zap.Logger

	mu    sync.Mutex
	token push.Token
	state State
}

// New creates an unsubscribed reconciler.
func New(ch Channel, inbox Inbox, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		ch:     ch,
		inbox:  inbox,
		logger: logger,
		state:  Unsubscribed,
	}
}

// Subscribe registers the newMessage handler. When already subscribed it
// returns the live token and registers nothing.
func (r *Reconciler) Subscribe() push.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Subscribed {
		return r.token
	}
	r.token = r.ch.On(EventNewMessage, r.handle)
	r.state = Subscribed
	r.logger.Debug("subscribed to push messages", zap.String("token", string(r.token)))
	return r.token
}

// Unsubscribe removes the registration identified by tok. It does nothing
// when unsubscribed or when tok is not the live token.
func (r *Reconciler) Unsubscribe(tok push.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Subscribed || tok != r.token {
		r.logger.Debug("ignoring unsubscribe", zap.String("state", string(r.state)), zap.String("token", string(tok)))
		return
	}
	r.ch.Off(r.token)
	r.token = ""
	r.state = Unsubscribed
}

// State reports whether the handler is registered.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) handle(data json.RawMessage) {
	var in chat.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		r.logger.Warn("dropping undecodable inbound message", zap.Error(err))
		return
	}
	route := r.inbox.RecordInbound(in)
	r.logger.Debug("inbound message",
		zap.String("msg_id", in.ID),
		zap.String("sender", in.SenderID),
		zap.Stringer("route", route))
}
