package chat

import (
	"slices"
	"time"
)

// Contact is a directory entry for another user. The store never mutates one.
type Contact struct {
	ID          string `json:"_id"`
	DisplayName string `json:"fullName"`
	Email       string `json:"email,omitempty"`
	AvatarRef   string `json:"profilePic,omitempty"`
}

// Name returns the display name, falling back to the id.
func (c Contact) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.ID
}

// Message is an immutable chat message as confirmed by the server.
type Message struct {
	ID            string    `json:"_id"`
	SenderID      string    `json:"senderId"`
	RecipientID   string    `json:"receiverId"`
	Body          string    `json:"text,omitempty"`
	AttachmentRef string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Involves reports whether the message was sent by or to contactID.
func (m Message) Involves(contactID string) bool {
	return m.SenderID == contactID || m.RecipientID == contactID
}

// OutgoingMessage is the payload posted to the send API.
type OutgoingMessage struct {
	Body          string `json:"text,omitempty"`
	AttachmentRef string `json:"image,omitempty"`
}

// Inbound is a message delivered over the push channel.
type Inbound struct {
	Message
	SenderName string `json:"senderName,omitempty"`
}

// Route says where RecordInbound placed a message.
type Route int

const (
	RouteDropped Route = iota
	RouteConversation
	RouteUnread
)

func (r Route) String() string {
	switch r {
	case RouteConversation:
		return "conversation"
	case RouteUnread:
		return "unread"
	default:
		return "dropped"
	}
}

func cloneContact(c *Contact) *Contact {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func cloneMessages(msgs []Message) []Message {
	return slices.Clone(msgs)
}
