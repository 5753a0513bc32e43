package cryptoutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Seal computes the tamper seal for a store record: HMAC-SHA256(kMac,
// key || blob), binding the ciphertext to the key it is stored under.
// Returned as lowercase hex.
func Seal(kMac []byte, key string, blob []byte) string {
	mac := hmac.New(sha256.New, kMac)
	mac.Write([]byte(key))
	mac.Write(blob)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySeal recomputes the seal and compares it against want using a
// constant-time comparison.
func VerifySeal(kMac []byte, key string, blob []byte, want string) bool {
	got := Seal(kMac, key, blob)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// HMACHex computes hex(HMAC-SHA256(key, data)), the building block for
// the opaque session-token MAC.
func HMACHex(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstantTimeEqual compares two strings in constant time. Used for
// address and MAC comparison.
func ConstantTimeEqual(a, b string) bool {
	// subtle.ConstantTimeCompare requires equal-length inputs to avoid a
	// length-based short-circuit; pad both to a common length with a
	// value that cannot appear in either to preserve constant time across
	// the length check itself is not an available stdlib primitive, so we
	// accept the (documented) length leak and keep content comparison
	// constant-time, which is what actually matters here (fixed-width
	// hex/address strings in practice).
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
