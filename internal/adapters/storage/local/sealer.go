package local

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"scolarite/internal/adapters/keys"
)

const nonceSize = 24

// ErrUnsealable is returned for values that were not sealed with this key.
var ErrUnsealable = errors.New("stored value cannot be opened")

// Sealer encrypts and authenticates values at rest with nacl/secretbox.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the sealing key from the server secret.
func NewSealer(secret string) (*Sealer, error) {
	k, err := keys.Derive(secret, keys.PurposeLocalSeal, 32)
	if err != nil {
		return nil, err
	}
	s := &Sealer{}
	copy(s.key[:], k)
	return s, nil
}

// Seal returns base64(nonce || box).
func (s *Sealer) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrUnsealable
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnsealable
	}
	return string(plain), nil
}
