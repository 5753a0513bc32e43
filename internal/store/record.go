package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lento47/GigChain-wcsap/internal/cryptoutil"
)

const sealSeparator = "||"

// sealRecord JSON-encodes v, encrypts it under kEnc, and appends a
// tamper seal computed over key||encryptedBlob, per the wire format
// `encrypt(json(record)) || "||" || hmac_hex`.
func sealRecord(km *cryptoutil.KeyMaterial, key string, v interface{}) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: failed to marshal record: %w", err)
	}
	blob, err := cryptoutil.Encrypt(km.KEnc, plaintext)
	if err != nil {
		return "", fmt.Errorf("store: failed to encrypt record: %w", err)
	}
	seal := cryptoutil.Seal(km.KMac, key, blob)
	return string(blob) + sealSeparator + seal, nil
}

// openRecord verifies the tamper seal before decrypting. ok is false
// whenever the seal does not verify (wrong key, truncation, tampering);
// callers MUST treat a false ok as "delete and return not found",
// never as a decryption-only failure.
func openRecord(km *cryptoutil.KeyMaterial, key, stored string, v interface{}) (ok bool, err error) {
	idx := strings.LastIndex(stored, sealSeparator)
	if idx < 0 {
		return false, nil
	}
	blob := stored[:idx]
	seal := stored[idx+len(sealSeparator):]

	if !cryptoutil.VerifySeal(km.KMac, key, []byte(blob), seal) {
		return false, nil
	}

	plaintext, err := cryptoutil.Decrypt(km.KEnc, []byte(blob))
	if err != nil {
		// Seal verified but decryption failed: the keys are out of sync
		// with the seal (should not happen under normal rotation), still
		// treated as "not found" rather than surfacing a crypto error.
		return false, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(plaintext)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return false, fmt.Errorf("store: failed to unmarshal record: %w", err)
	}
	return true, nil
}
