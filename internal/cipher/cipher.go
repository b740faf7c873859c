// Package cipher wraps an authenticated symmetric cipher behind a
// string-in/string-out contract used to seal persisted session state.
package cipher

import (
	stdcipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrEmptyKey is returned by New when no secret key is configured.
	ErrEmptyKey = errors.New("cipher: empty key")
	// ErrDecryption is returned for malformed, tampered, or foreign ciphertext.
	ErrDecryption = errors.New("cipher: decryption failed")
)

const keyInfo = "chatstore snapshot key"

var encoding = base64.StdEncoding.Strict()

// Cipher seals and opens text with XChaCha20-Poly1305 under a key derived
// from a textual secret. It holds no mutable state and is safe for
// concurrent use.
type Cipher struct {
	aead stdcipher.AEAD
}

// New derives a 256-bit key from secret with HKDF-SHA256.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt returns base64(nonce || sealed). Two calls with the same input
// produce different output.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure wraps ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := encoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plain), nil
}
