package cryptoutil

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	km, err := DeriveKeys([]byte("a-process-wide-secret-of-32-bytes!!"))
	if err != nil {
		t.Fatalf("DeriveKeys failed: %v", err)
	}

	plaintext := []byte(`{"wallet":"0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"}`)

	blob, err := Encrypt(km.KEnc, plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	got, err := Decrypt(km.KEnc, blob)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestDecryptFailsOnFlippedByte(t *testing.T) {
	km, _ := DeriveKeys([]byte("a-process-wide-secret-of-32-bytes!!"))
	blob, err := Encrypt(km.KEnc, []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	for i := range blob {
		tampered := append([]byte{}, blob...)
		tampered[i] ^= 0xFF
		if _, err := Decrypt(km.KEnc, tampered); err == nil {
			t.Fatalf("Decrypt should have failed with byte %d flipped", i)
		}
	}
}

func TestDecryptFailsOnWrongKey(t *testing.T) {
	km1, _ := DeriveKeys([]byte("secret-one-that-is-32-bytes-long!!!"))
	km2, _ := DeriveKeys([]byte("secret-two-that-is-32-bytes-long!!!"))

	blob, err := Encrypt(km1.KEnc, []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := Decrypt(km2.KEnc, blob); err == nil {
		t.Fatal("Decrypt should have failed with the wrong key")
	}
}

func TestEncryptNeverReusesNonce(t *testing.T) {
	km, _ := DeriveKeys([]byte("a-process-wide-secret-of-32-bytes!!"))
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		blob, err := Encrypt(km.KEnc, []byte("payload"))
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		nonce := string(blob[:nonceSize])
		if seen[nonce] {
			t.Fatal("nonce reused across encryptions")
		}
		seen[nonce] = true
	}
}

func TestSealTamperEvidence(t *testing.T) {
	km, _ := DeriveKeys([]byte("a-process-wide-secret-of-32-bytes!!"))
	blob := []byte("encrypted-record-bytes")
	seal := Seal(km.KMac, "w_csap:session:abc", blob)

	if !VerifySeal(km.KMac, "w_csap:session:abc", blob, seal) {
		t.Fatal("VerifySeal should accept a freshly computed seal")
	}

	tampered := append([]byte{}, blob...)
	tampered[0] ^= 0xFF
	if VerifySeal(km.KMac, "w_csap:session:abc", tampered, seal) {
		t.Fatal("VerifySeal should reject a tampered blob")
	}

	if VerifySeal(km.KMac, "w_csap:session:other-key", blob, seal) {
		t.Fatal("VerifySeal should reject a mismatched key")
	}
}

func TestRotatorOverlapWindow(t *testing.T) {
	rot, err := NewRotator([]byte("a-process-wide-secret-of-32-bytes!!"))
	if err != nil {
		t.Fatalf("NewRotator failed: %v", err)
	}

	blob, err := Encrypt(rot.Current().KEnc, []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if err := rot.Rotate(); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// New key can't decrypt the old record...
	if _, err := Decrypt(rot.Current().KEnc, blob); err == nil {
		t.Fatal("new key should not decrypt a record sealed under the old key")
	}
	// ...but the prior generation, kept during the overlap window, can.
	if _, err := Decrypt(rot.Prior().KEnc, blob); err != nil {
		t.Fatalf("prior key should still decrypt: %v", err)
	}

	rot.ClearPrior()
	if rot.Prior() != nil {
		t.Fatal("ClearPrior should drop the prior generation")
	}
}
