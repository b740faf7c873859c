package snapshot

import (
	"errors"

	"github.com/matheus3301/chatstore/internal/chat"
	"go.uber.org/zap"
)

// StorageKey names the single storage entry holding the store snapshot.
const StorageKey = "chat-store"

// Storage is session-scoped key/value storage.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Persister writes the store snapshot to storage after every mutation and
// restores it at startup.
type Persister struct {
	codec   *Codec
	storage Storage
	logger  *zap.Logger
}

// NewPersister creates a persister for the StorageKey entry.
func NewPersister(codec *Codec, storage Storage, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{codec: codec, storage: storage, logger: logger}
}

// Persist seals and writes snap. Failures are logged and otherwise ignored;
// in-memory state is authoritative.
func (p *Persister) Persist(snap chat.Snapshot) {
	blob, err := p.codec.Serialize(snap)
	if err != nil {
		p.logger.Error("failed to serialize snapshot", zap.Error(err))
		return
	}
	if err := p.storage.Set(StorageKey, blob); err != nil {
		p.logger.Error("failed to write snapshot", zap.Error(err))
	}
}

// Restore reads the persisted snapshot. A missing, unreadable, or corrupt
// entry yields the empty snapshot.
func (p *Persister) Restore() chat.Snapshot {
	snap, err := p.Load()
	if errors.Is(err, ErrNoSnapshot) {
		p.logger.Debug("no persisted snapshot")
		return chat.EmptySnapshot()
	}
	if err != nil {
		p.logger.Warn("discarding persisted snapshot", zap.Error(err))
		return chat.EmptySnapshot()
	}
	return snap
}

// ErrNoSnapshot is returned by Load when nothing has been persisted.
var ErrNoSnapshot = errors.New("snapshot: nothing persisted")

// Load is Restore without the fallback.
func (p *Persister) Load() (chat.Snapshot, error) {
	blob, ok, err := p.storage.Get(StorageKey)
	if err != nil {
		return chat.Snapshot{}, err
	}
	if !ok {
		return chat.Snapshot{}, ErrNoSnapshot
	}
	return p.codec.Decode(blob)
}

// Clear deletes the persisted snapshot.
func (p *Persister) Clear() error {
	return p.storage.Delete(StorageKey)
}
