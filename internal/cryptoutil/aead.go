package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const nonceSize = 12 // GCM standard nonce size

// Encrypt seals plaintext under key (must be 32 bytes, AES-256) with a
// freshly generated nonce, never reused across calls. The returned blob
// layout is nonce(12) || ciphertext || tag(16).
func Encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptoutil: generate nonce: %w", err)
	}

	// Seal appends ciphertext||tag after dst; passing nonce as dst gives
	// us the nonce(12) || ciphertext || tag(16) layout in one call.
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Any tag-verification failure
// (tamper, wrong key, truncation) returns a non-nil error; callers in the
// store layer MUST treat this as "delete the record and return not found",
// never as "payload is empty."
func Decrypt(key, blob []byte) ([]byte, error) {
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("cryptoutil: blob too short")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: new gcm: %w", err)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: decrypt: %w", err)
	}
	return plaintext, nil
}
