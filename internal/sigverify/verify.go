package sigverify

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Result is the outcome of a Verify call. Recovered is only meaningful
// when OK is true; callers must not branch on Recovered's zero value to
// infer failure, since that would reintroduce a timing/oracle leak.
type Result struct {
	OK        bool
	Recovered string
}

// Verify recovers the EIP-191 signer of message from signature and reports
// whether it matches expected. It is fail-closed: any malformed input,
// decode error, or recovery failure yields Result{OK: false}; there is
// no error return — callers in the authenticator map every non-OK result to the
// single generic InvalidSignature error, never distinguishing the reason.
//
// All three checks below (signature well-formedness, recovery success,
// address match) are always performed in the same order and none
// short-circuits the others' cost: a malformed signature still walks
// through hashing and a dummy recovery attempt so that verification time
// does not depend on which check would have failed.
func Verify(message, signatureHex, expected string) Result {
	sig, sigErr := decodeSignature(signatureHex)
	expectedChecksum, addrErr := NormalizeChecksum(expected)

	hash := eip191Hash(message)

	// Always attempt recovery against a well-formed 65-byte buffer so the
	// cost of this branch does not vary with whether decoding succeeded.
	workingSig := sig
	if sigErr != nil || len(workingSig) != 65 {
		workingSig = make([]byte, 65)
		workingSig[64] = 27
	}
	normalizeRecoveryID(workingSig)

	pub, recErr := ethcrypto.SigToPub(hash, workingSig)

	ok := sigErr == nil && addrErr == nil && recErr == nil
	var recovered string
	if recErr == nil {
		recovered = ethcrypto.PubkeyToAddress(*pub).Hex()
	}

	if !ok {
		return Result{OK: false}
	}
	if !EqualAddresses(recovered, expectedChecksum) {
		return Result{OK: false}
	}
	return Result{OK: true, Recovered: recovered}
}

// eip191Hash encodes message per EIP-191 personal-message framing
// ("\x19Ethereum Signed Message:\n" + len(message) + message) and hashes
// it with Keccak-256.
func eip191Hash(message string) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message))
	return ethcrypto.Keccak256([]byte(prefix), []byte(message))
}

// decodeSignature parses a 0x-prefixed 130 or 132 hex-char signature
// (64 or 65 byte r||s||v) into 65 raw bytes.
func decodeSignature(sigHex string) ([]byte, error) {
	s := strings.TrimSpace(sigHex)
	if s == "" {
		return nil, fmt.Errorf("sigverify: empty signature")
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 128 && len(s) != 130 {
		return nil, fmt.Errorf("sigverify: signature must be 128 or 130 hex chars, got %d", len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("sigverify: signature is not valid hex: %w", err)
	}
	if len(raw) == 64 {
		// Some wallets omit the recovery byte; default to 27 and let
		// normalizeRecoveryID fix it up.
		raw = append(raw, 27)
	}
	if len(raw) != 65 {
		return nil, fmt.Errorf("sigverify: signature must decode to 65 bytes, got %d", len(raw))
	}
	out := make([]byte, 65)
	copy(out, raw)
	normalizeRecoveryID(out)
	return out, nil
}

// normalizeRecoveryID rewrites a {27,28} recovery byte to go-ethereum's
// expected {0,1} range in place.
func normalizeRecoveryID(sig []byte) {
	if len(sig) == 65 && sig[64] >= 27 {
		sig[64] -= 27
	}
}
