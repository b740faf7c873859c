// Package notify delivers user-visible toasts.
package notify

import (
	"github.com/matheus3301/chatstore/internal/bus"
)

// Kind classifies a notification.
type Kind string

const (
	Info  Kind = "info"
	Error Kind = "error"
)

// Sink receives user-visible notifications.
type Sink interface {
	Notify(kind Kind, text string)
}

// Toast is the bus payload for notification events.
type Toast struct {
	Kind Kind
	Text string
}

// BusSink publishes notifications as notify.* events.
type BusSink struct {
	bus *bus.Bus
}

// NewBusSink creates a sink that publishes on b.
func NewBusSink(b *bus.Bus) *BusSink {
	return &BusSink{bus: b}
}

func (s *BusSink) Notify(kind Kind, text string) {
	evtKind := bus.KindNotifyInfo
	if kind == Error {
		evtKind = bus.KindNotifyError
	}
	s.bus.Publish(bus.NewEvent(evtKind, Toast{Kind: kind, Text: text}))
}

// Tee fans a notification out to every sink in order.
type Tee []Sink

func (t Tee) Notify(kind Kind, text string) {
	for _, s := range t {
		s.Notify(kind, text)
	}
}

// Discard drops every notification.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Kind, string) {}
