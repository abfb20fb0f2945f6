// ABOUTME: Symmetric sealing of secrets stored in the session table
// ABOUTME: NaCl secretbox with a key derived from session.secret via HKDF-SHA256

package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrUnseal is returned when a sealed value cannot be opened with the current key.
var ErrUnseal = errors.New("cannot unseal value")

const nonceSize = 24

// Sealer encrypts short secrets (bearer tokens) before they reach disk.
type Sealer struct {
	key [32]byte
}

// NewSealer derives a secretbox key from the given key material.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sealer key material must be at least 32 bytes, got %d", len(secret))
	}

	var s Sealer
	kdf := hkdf.New(sha256.New, secret, nil, []byte("botfy-dashboard session token v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("deriving sealing key: %w", err)
	}
	return &s, nil
}

// Seal returns base64(nonce || box).
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}
