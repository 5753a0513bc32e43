// Package sigverify recovers an EIP-191 signer address
// from a message/signature pair and comparing it against an expected
// wallet address, fail-closed on every branch.
package sigverify

import (
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// NormalizeChecksum validates addr as a 20-byte hex Ethereum address and
// returns its EIP-55 mixed-case checksum form ("0x" + 40 hex chars). It
// rejects malformed input rather than silently lowercasing it, since a
// badly formed wallet address must never reach the signature comparison.
func NormalizeChecksum(addr string) (string, error) {
	a := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(a) != 40 {
		return "", fmt.Errorf("sigverify: address must be 40 hex chars, got %d", len(a))
	}
	raw, err := hex.DecodeString(a)
	if err != nil {
		return "", fmt.Errorf("sigverify: address is not valid hex: %w", err)
	}
	lower := hex.EncodeToString(raw)
	hashBytes := ethcrypto.Keccak256([]byte(lower))

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range lower {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
			continue
		}
		// Character i is a hex letter; nibble i of the address hash
		// decides upper vs lower case, per EIP-55.
		nibble := hashBytes[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			b.WriteRune(c - 32) // to uppercase
		} else {
			b.WriteRune(c)
		}
	}
	return b.String(), nil
}

// EqualAddresses reports whether two address strings refer to the same
// wallet, comparing case-insensitively and in constant time over the
// lowercased hex body (the "0x" prefix carries no secret information).
func EqualAddresses(a, b string) bool {
	la := strings.ToLower(strings.TrimPrefix(a, "0x"))
	lb := strings.ToLower(strings.TrimPrefix(b, "0x"))
	return constantTimeEqualStrings(la, lb)
}

func constantTimeEqualStrings(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
