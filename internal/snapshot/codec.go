// Package snapshot turns store state into an encrypted text blob and back.
// Corrupt or foreign blobs are reported by Decode and collapse to an empty
// state in Deserialize; nothing here ever blocks startup.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matheus3301/chatstore/internal/chat"
	"github.com/matheus3301/chatstore/internal/cipher"
)

var (
	// ErrDecryption aliases the cipher failure so callers need one import.
	ErrDecryption = cipher.ErrDecryption
	// ErrMalformed is returned when the decrypted text is not a valid snapshot.
	ErrMalformed = errors.New("snapshot: malformed")
	// ErrIncompatible is returned for blobs written with another schema version.
	ErrIncompatible = errors.New("snapshot: incompatible version")
)

// Sealer is the symmetric cipher the codec relies on.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Codec serializes snapshots under a process-wide key.
type Codec struct {
	sealer Sealer
}

// NewCodec creates a codec sealing with s.
func NewCodec(s Sealer) *Codec {
	return &Codec{sealer: s}
}

// Serialize encodes snap as JSON stamped with the current version and
// encrypts it.
func (c *Codec) Serialize(snap chat.Snapshot) (string, error) {
	snap.Version = chat.SnapshotVersion
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	blob, err := c.sealer.Encrypt(string(data))
	if err != nil {
		return "", fmt.Errorf("encrypt snapshot: %w", err)
	}
	return blob, nil
}

// Decode decrypts and validates blob. Loading flags are reset on success.
func (c *Codec) Decode(blob string) (chat.Snapshot, error) {
	plain, err := c.sealer.Decrypt(blob)
	if err != nil {
		return chat.Snapshot{}, err
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal([]byte(plain), &probe); err != nil {
		return chat.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if probe.Version == nil || *probe.Version != chat.SnapshotVersion {
		return chat.Snapshot{}, ErrIncompatible
	}

	var snap chat.Snapshot
	if err := json.Unmarshal([]byte(plain), &snap); err != nil {
		return chat.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := snap.Validate(); err != nil {
		return chat.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return snap.Normalize(), nil
}

// Deserialize is Decode with every failure replaced by the empty snapshot.
func (c *Codec) Deserialize(blob string) chat.Snapshot {
	snap, err := c.Decode(blob)
	if err != nil {
		return chat.EmptySnapshot()
	}
	return snap
}
