package sigverify

import (
	"crypto/ecdsa"
	"encoding/hex"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func signMessage(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	hash := eip191Hash(message)
	sig, err := ethcrypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig)
}

func TestVerifyHappyPath(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	message := "sign this challenge"
	sig := signMessage(t, key, message)

	res := Verify(message, sig, addr)
	if !res.OK {
		t.Fatalf("expected verification to succeed")
	}
	if !EqualAddresses(res.Recovered, addr) {
		t.Fatalf("recovered address mismatch: got %s want %s", res.Recovered, addr)
	}
}

func TestVerifyFailsOnWrongExpectedAddress(t *testing.T) {
	key, _ := ethcrypto.GenerateKey()
	other, _ := ethcrypto.GenerateKey()
	message := "sign this challenge"
	sig := signMessage(t, key, message)

	res := Verify(message, sig, ethcrypto.PubkeyToAddress(other.PublicKey).Hex())
	if res.OK {
		t.Fatal("expected verification to fail for mismatched address")
	}
}

func TestVerifyFailsOnTamperedMessage(t *testing.T) {
	key, _ := ethcrypto.GenerateKey()
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	sig := signMessage(t, key, "original message")

	res := Verify("tampered message", sig, addr)
	if res.OK {
		t.Fatal("expected verification to fail for a tampered message")
	}
}

func TestVerifyFailClosedOnMalformedInputs(t *testing.T) {
	cases := []struct {
		name      string
		message   string
		signature string
		expected  string
	}{
		{"empty signature", "msg", "", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"},
		{"short signature", "msg", "0x1234", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"},
		{"non-hex signature", "msg", "0x" + string(make([]byte, 130)), "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"},
		{"empty expected address", "msg", "0x" + hex.EncodeToString(make([]byte, 65)), ""},
		{"malformed expected address", "msg", "0x" + hex.EncodeToString(make([]byte, 65)), "not-an-address"},
		{"empty message", "", "0x" + hex.EncodeToString(make([]byte, 65)), "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Verify(tc.message, tc.signature, tc.expected)
			if res.OK {
				t.Fatalf("expected fail-closed result for %s", tc.name)
			}
			if res.Recovered != "" {
				t.Fatalf("fail-closed result must not leak a recovered address")
			}
		})
	}
}

func TestNormalizeChecksumRejectsMalformed(t *testing.T) {
	cases := []string{"", "0x123", "0xzz35Cc6634C0532925a3b844Bc9e7595f0bEb0", "742d35Cc6634C0532925a3b844Bc9e7595f0bE"}
	for _, c := range cases {
		if _, err := NormalizeChecksum(c); err == nil {
			t.Fatalf("expected NormalizeChecksum(%q) to fail", c)
		}
	}
}

func TestNormalizeChecksumKnownVector(t *testing.T) {
	// Well-known EIP-55 test vector.
	got, err := NormalizeChecksum("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	if err != nil {
		t.Fatalf("NormalizeChecksum failed: %v", err)
	}
	want := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	if got != want {
		t.Fatalf("checksum mismatch: got %s want %s", got, want)
	}
}

func TestEqualAddressesCaseInsensitive(t *testing.T) {
	a := "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
	b := "0x742D35CC6634C0532925A3B844BC9E7595F0BEB0"
	if !EqualAddresses(a, b) {
		t.Fatal("expected case-insensitive match")
	}
	if EqualAddresses(a, "0x0000000000000000000000000000000000dEaD") {
		t.Fatal("expected mismatch for different addresses")
	}
}
