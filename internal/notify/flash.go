package notify

import (
	"sync"
	"time"
)

// Flash holds the most recent toast until it expires.
type Flash struct {
	mu      sync.RWMutex
	ttl     time.Duration
	kind    Kind
	message string
	expires time.Time
}

// NewFlash creates a Flash whose toasts live for ttl.
func NewFlash(ttl time.Duration) *Flash {
	return &Flash{ttl: ttl}
}

// Notify implements Sink.
func (f *Flash) Notify(kind Kind, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kind = kind
	f.message = text
	f.expires = time.Now().Add(f.ttl)
}

// Get returns the current toast, or empty if expired.
func (f *Flash) Get() (Kind, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if time.Now().After(f.expires) {
		return "", ""
	}
	return f.kind, f.message
}

// Take returns the current toast like Get and clears it, so a toast is
// shown once.
func (f *Flash) Take() (Kind, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Now().After(f.expires) {
		return "", ""
	}
	kind, text := f.kind, f.message
	f.kind, f.message, f.expires = "", "", time.Time{}
	return kind, text
}
