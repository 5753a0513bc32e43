package authenticator

import (
	"crypto/rand"
	"encoding/hex"
)

// randomAssertionID mints a 32-byte hex assertion ID, matching the
// challenge ID's entropy and encoding.
func randomAssertionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
