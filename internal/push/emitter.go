// Package push carries server-initiated events to the client: a handler
// registry keyed by event name and a websocket transport that feeds it.
package push

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Token identifies one handler registration.
type Token string

// Handler receives the raw data of one event.
type Handler func(data json.RawMessage)

type registration struct {
	token   Token
	event   string
	handler Handler
}

// Emitter dispatches named events to registered handlers. Handlers run
// synchronously on the emitting goroutine, in registration order, and each
// event is fully handled before Emit returns.
type Emitter struct {
	mu   sync.RWMutex
	regs []registration
}

// NewEmitter returns an emitter with no handlers.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// On registers h for event and returns a token for Off.
func (e *Emitter) On(event string, h Handler) Token {
	tok := Token(uuid.NewString())
	e.mu.Lock()
	e.regs = append(e.regs, registration{token: tok, event: event, handler: h})
	e.mu.Unlock()
	return tok
}

// Off removes the registration for tok. Unknown tokens are ignored.
func (e *Emitter) Off(tok Token) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.regs {
		if r.token == tok {
			e.regs = append(e.regs[:i:i], e.regs[i+1:]...)
			return
		}
	}
}

// Emit invokes every handler registered for event.
func (e *Emitter) Emit(event string, data json.RawMessage) {
	e.mu.RLock()
	var hs []Handler
	for _, r := range e.regs {
		if r.event == event {
			hs = append(hs, r.handler)
		}
	}
	e.mu.RUnlock()

	for _, h := range hs {
		h(data)
	}
}

// Handlers returns how many handlers are registered for event.
func (e *Emitter) Handlers(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, r := range e.regs {
		if r.event == event {
			n++
		}
	}
	return n
}
