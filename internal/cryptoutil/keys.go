// Package cryptoutil implements the key derivation and AEAD primitives
// that every encrypted-at-rest record in the authentication core is
// built on: PBKDF2-HMAC-SHA256 key derivation, AES-256-GCM for
// confidentiality, and HMAC-SHA256 for tamper seals and opaque token MACs.
package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Raising PBKDF2Iterations is a compatibility break for anything
	// persisted with the old count.
	PBKDF2Iterations = 600_000

	saltSize = 32
	keySize  = 32 // AES-256 / HMAC-SHA256 key size
)

// KeyMaterial holds the two keys derived from the process secret: one for
// AEAD confidentiality, one for HMAC tamper seals and token MACs. Both are
// held in memory for the process lifetime and are never logged or written
// to disk.
type KeyMaterial struct {
	Salt []byte
	KEnc []byte // AES-256 key
	KMac []byte // HMAC-SHA256 key
}

// DeriveKeys derives KEnc and KMac from secret using PBKDF2-HMAC-SHA256
// with a fresh random salt. secret must be at least 32 bytes; this is
// enforced by config validation (internal/wcsapconfig), not here, so that
// rotation (which re-derives with the same secret) doesn't re-validate.
func DeriveKeys(secret []byte) (*KeyMaterial, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptoutil: generate salt: %w", err)
	}
	return deriveWithSalt(secret, salt), nil
}

// DeriveKeysWithSalt re-derives keys from an existing salt, used to
// reconstruct KeyMaterial for records persisted under a prior rotation.
func DeriveKeysWithSalt(secret, salt []byte) *KeyMaterial {
	return deriveWithSalt(secret, salt)
}

func deriveWithSalt(secret, salt []byte) *KeyMaterial {
	// info strings separate the two derived keys; PBKDF2 doesn't natively
	// support domain separation so we fold it into the salt.
	encSalt := append(append([]byte{}, salt...), []byte("encryption")...)
	macSalt := append(append([]byte{}, salt...), []byte("hmac")...)

	return &KeyMaterial{
		Salt: salt,
		KEnc: pbkdf2.Key(secret, encSalt, PBKDF2Iterations, keySize, sha256.New),
		KMac: pbkdf2.Key(secret, macSalt, PBKDF2Iterations, keySize, sha256.New),
	}
}

// Rotator holds the active key material plus, during an overlap window,
// the previous generation so in-flight tokens/records keep verifying.
type Rotator struct {
	secret  []byte
	current *KeyMaterial
	prior   *KeyMaterial
}

// NewRotator derives the initial key material from secret.
func NewRotator(secret []byte) (*Rotator, error) {
	km, err := DeriveKeys(secret)
	if err != nil {
		return nil, err
	}
	return &Rotator{secret: secret, current: km}, nil
}

// Current returns the active key material.
func (r *Rotator) Current() *KeyMaterial { return r.current }

// Rotate generates a new salt and re-derives both keys, keeping the
// previous generation available via Prior for the overlap window. Callers
// are responsible for ending the overlap (calling Rotate again, or
// dropping Prior) once re-encryption of existing records completes.
func (r *Rotator) Rotate() error {
	km, err := DeriveKeys(r.secret)
	if err != nil {
		return err
	}
	r.prior = r.current
	r.current = km
	return nil
}

// Prior returns the key material from before the last rotation, or nil if
// no rotation has happened yet or the overlap window has been cleared.
func (r *Rotator) Prior() *KeyMaterial { return r.prior }

// ClearPrior drops the previous generation once the overlap window ends.
func (r *Rotator) ClearPrior() { r.prior = nil }
