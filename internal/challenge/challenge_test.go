package challenge

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateProducesWellFormedChallenge(t *testing.T) {
	g := NewGenerator(5 * time.Minute)
	c, err := g.Generate("0x742d35cc6634c0532925a3b844bc9e7595f0beb0", "203.0.113.7", "test-agent/1.0")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(c.ChallengeID) != 64 {
		t.Fatalf("challenge_id must be 32-byte hex (64 chars), got %d", len(c.ChallengeID))
	}
	if len(c.Nonce) != 64 {
		t.Fatalf("nonce must be 32-byte hex (64 chars), got %d", len(c.Nonce))
	}
	if !strings.HasPrefix(c.WalletAddress, "0x") {
		t.Fatalf("wallet address must be checksum-normalized with 0x prefix, got %s", c.WalletAddress)
	}
	if c.Status != StatusPending {
		t.Fatalf("newly minted challenge must be pending, got %s", c.Status)
	}
	if c.ExpiresAt-c.IssuedAt != 300 {
		t.Fatalf("expected a 300s TTL, got %d", c.ExpiresAt-c.IssuedAt)
	}

	for _, want := range []string{"Wallet:", "Challenge ID:", "Nonce:", "Issued:", "Expires:", "Only sign this if you initiated"} {
		if !strings.Contains(c.ChallengeMsg, want) {
			t.Fatalf("challenge message missing %q:\n%s", want, c.ChallengeMsg)
		}
	}
}

func TestGenerateRejectsMalformedWallet(t *testing.T) {
	g := NewGenerator(time.Minute)
	if _, err := g.Generate("not-a-wallet", "", ""); err == nil {
		t.Fatal("expected Generate to reject a malformed wallet address")
	}
}

func TestGenerateProducesUniqueIDsAndNonces(t *testing.T) {
	g := NewGenerator(time.Minute)
	seenIDs := make(map[string]bool)
	seenNonces := make(map[string]bool)
	for i := 0; i < 25; i++ {
		c, err := g.Generate("0x742d35cc6634c0532925a3b844bc9e7595f0beb0", "", "")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if seenIDs[c.ChallengeID] {
			t.Fatal("challenge_id collision across generations")
		}
		if seenNonces[c.Nonce] {
			t.Fatal("nonce collision across generations")
		}
		seenIDs[c.ChallengeID] = true
		seenNonces[c.Nonce] = true
	}
}

func TestIsExpired(t *testing.T) {
	g := NewGenerator(time.Second)
	c, err := g.Generate("0x742d35cc6634c0532925a3b844bc9e7595f0beb0", "", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	now := time.Unix(c.IssuedAt, 0)
	if c.IsExpired(now) {
		t.Fatal("challenge should not be expired at issuance")
	}
	later := time.Unix(c.ExpiresAt+1, 0)
	if !c.IsExpired(later) {
		t.Fatal("challenge should be expired after expires_at")
	}
}
