// Package presence keeps the set of users the push channel reports online.
package presence

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/matheus3301/chatstore/internal/push"
	"go.uber.org/zap"
)

// EventOnlineUsers is the push event carrying the full online id list.
const EventOnlineUsers = "getOnlineUsers"

// Channel is the push event source.
type Channel interface {
	On(event string, h push.Handler) push.Token
	Off(tok push.Token)
}

// Tracker holds the current online set. Each update replaces it wholesale.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
	logger *zap.Logger
}

// NewTracker returns a tracker with nobody online.
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{online: make(map[string]struct{}), logger: logger}
}

// Replace sets the online set to ids.
func (t *Tracker) Replace(ids []string) {
	online := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			online[id] = struct{}{}
		}
	}
	t.mu.Lock()
	t.online = online
	t.mu.Unlock()
}

func (t *Tracker) IsOnline(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[id]
	return ok
}

// Online returns the online ids, sorted.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.online))
	for id := range t.online {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// CountExcluding returns how many users are online besides self.
func (t *Tracker) CountExcluding(self string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := len(t.online)
	if _, ok := t.online[self]; ok {
		n--
	}
	return n
}

// Attach keeps the tracker in sync with the push channel. The returned
// function detaches it.
func (t *Tracker) Attach(ch Channel) func() {
	tok := ch.On(EventOnlineUsers, func(data json.RawMessage) {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			t.logger.Warn("dropping undecodable online list", zap.Error(err))
			return
		}
		t.Replace(ids)
	})
	var once sync.Once
	return func() { once.Do(func() { ch.Off(tok) }) }
}
