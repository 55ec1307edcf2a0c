// Package keys derives purpose-bound keys from the server secret.
package keys

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Purposes of derived keys. Each purpose yields an independent key.
const (
	PurposeCSRF       = "scolarite csrf"
	PurposeCookieHash = "scolarite cookie hash"
	PurposeCookieEnc  = "scolarite cookie block"
	PurposeLocalSeal  = "scolarite local storage"
)

// Derive returns n bytes of key material for purpose.
// PRE: secret is non-empty; n > 0
// POST: the same inputs always yield the same key
func Derive(secret, purpose string, n int) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("derive %q: empty secret", purpose)
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	key := make([]byte, n)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %q: %w", purpose, err)
	}
	return key, nil
}

// MustDerive is Derive for startup code; it panics on error.
func MustDerive(secret, purpose string, n int) []byte {
	k, err := Derive(secret, purpose, n)
	if err != nil {
		panic(err)
	}
	return k
}
