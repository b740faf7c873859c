package bus

import "time"

// Event kinds published inside a chat session.
const (
	KindNotifyInfo         = "notify.info"
	KindNotifyError        = "notify.error"
	KindPushStatusChanged  = "push.status_changed"
	KindSelectionChanged   = "store.selection_changed"
	KindConversationLoaded = "store.conversation_loaded"
	KindUnreadChanged      = "store.unread_changed"
	KindMessageAppended    = "store.message_appended"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
