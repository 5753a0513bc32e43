package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Lento47/GigChain-wcsap/internal/challenge"
)

func newTestBackend(t *testing.T) *MemoryBackend {
	t.Helper()
	b, err := NewMemoryBackend([]byte("a-process-wide-secret-of-32-bytes!!"), time.Hour)
	if err != nil {
		t.Fatalf("NewMemoryBackend failed: %v", err)
	}
	t.Cleanup(func() { b.Close(context.Background()) })
	return b
}

func testSession(assertionID, wallet string) *Session {
	now := time.Now().Unix()
	return &Session{
		AssertionID:   assertionID,
		WalletAddress: wallet,
		IssuedAt:      now,
		NotBefore:     now,
		ExpiresAt:     now + 3600,
		LastActivity:  now,
		SessionToken:  "tok",
		RefreshToken:  "rtok",
		Signature:     "0xsig",
		Metadata:      map[string]string{"auth_method": "wallet_signature"},
	}
}

func TestSessionPutGetDelete(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	s := testSession("assertion-1", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")

	if err := b.PutSession(ctx, s, time.Hour); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	got, err := b.GetSession(ctx, s.AssertionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil || got.WalletAddress != s.WalletAddress {
		t.Fatalf("GetSession returned unexpected value: %+v", got)
	}

	if err := b.DeleteSession(ctx, s.AssertionID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, err = b.GetSession(ctx, s.AssertionID)
	if err != nil {
		t.Fatalf("GetSession after delete failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil session after delete")
	}
}

func TestSessionExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	s := testSession("assertion-2", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")

	if err := b.PutSession(ctx, s, 10*time.Millisecond); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	got, err := b.GetSession(ctx, s.AssertionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil session after TTL expiry")
	}
}

func TestChallengeTamperSealRejectsModifiedRecord(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	c := &challenge.Challenge{
		ChallengeID:   "chal-1",
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		ChallengeMsg:  "sign me",
		Nonce:         "abc123",
		IssuedAt:      time.Now().Unix(),
		ExpiresAt:     time.Now().Add(5 * time.Minute).Unix(),
		Status:        challenge.StatusPending,
	}
	if err := b.PutChallenge(ctx, c, 5*time.Minute); err != nil {
		t.Fatalf("PutChallenge failed: %v", err)
	}

	b.mu.Lock()
	entry := b.challenges[c.ChallengeID]
	last := "0"
	if entry.sealed[len(entry.sealed)-1] == '0' {
		last = "1"
	}
	tampered := entry.sealed[:len(entry.sealed)-1] + last
	b.challenges[c.ChallengeID] = memoryEntry{sealed: tampered, expiresAt: entry.expiresAt}
	b.mu.Unlock()

	got, err := b.GetChallenge(ctx, c.ChallengeID)
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected tampered record to be rejected")
	}

	b.mu.RLock()
	_, stillPresent := b.challenges[c.ChallengeID]
	b.mu.RUnlock()
	if stillPresent {
		t.Fatal("tampered record must be deleted on read")
	}
}

func TestConsumeChallengeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	c := &challenge.Challenge{
		ChallengeID:   "chal-consume",
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		ChallengeMsg:  "sign me",
		Nonce:         "abc123",
		IssuedAt:      time.Now().Unix(),
		ExpiresAt:     time.Now().Add(5 * time.Minute).Unix(),
		Status:        challenge.StatusPending,
	}
	if err := b.PutChallenge(ctx, c, 5*time.Minute); err != nil {
		t.Fatalf("PutChallenge failed: %v", err)
	}

	got, err := b.ConsumeChallenge(ctx, c.ChallengeID)
	if err != nil {
		t.Fatalf("ConsumeChallenge failed: %v", err)
	}
	if got == nil || got.ChallengeID != c.ChallengeID {
		t.Fatalf("ConsumeChallenge returned unexpected value: %+v", got)
	}

	replayed, err := b.ConsumeChallenge(ctx, c.ChallengeID)
	if err != nil {
		t.Fatalf("second ConsumeChallenge failed: %v", err)
	}
	if replayed != nil {
		t.Fatal("expected second ConsumeChallenge to return nil (already consumed)")
	}
}

func TestConsumeChallengeConcurrentOnlyOneWinner(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	c := &challenge.Challenge{
		ChallengeID:   "chal-race",
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		ChallengeMsg:  "sign me",
		Nonce:         "abc123",
		IssuedAt:      time.Now().Unix(),
		ExpiresAt:     time.Now().Add(5 * time.Minute).Unix(),
		Status:        challenge.StatusPending,
	}
	if err := b.PutChallenge(ctx, c, 5*time.Minute); err != nil {
		t.Fatalf("PutChallenge failed: %v", err)
	}

	results := make(chan *challenge.Challenge, 2)
	for i := 0; i < 2; i++ {
		go func() {
			got, _ := b.ConsumeChallenge(ctx, c.ChallengeID)
			results <- got
		}()
	}

	wins := 0
	for i := 0; i < 2; i++ {
		if r := <-results; r != nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestSessionsByWalletIsCaseInsensitiveAndExcludesOthers(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	wallet := "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
	s1 := testSession("a-1", wallet)
	s2 := testSession("a-2", strings.ToLower(wallet))
	other := testSession("a-3", "0x0000000000000000000000000000000000dEaD")

	for _, s := range []*Session{s1, s2, other} {
		if err := b.PutSession(ctx, s, time.Hour); err != nil {
			t.Fatalf("PutSession failed: %v", err)
		}
	}

	sessions, err := b.SessionsByWallet(ctx, strings.ToUpper(wallet))
	if err != nil {
		t.Fatalf("SessionsByWallet failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions for wallet, got %d", len(sessions))
	}
}

func TestRotateKeysPreservesOverlapWindow(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	s := testSession("assertion-rotate", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")

	if err := b.PutSession(ctx, s, time.Hour); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}
	if err := b.RotateKeys(ctx); err != nil {
		t.Fatalf("RotateKeys failed: %v", err)
	}

	got, err := b.GetSession(ctx, s.AssertionID)
	if err != nil {
		t.Fatalf("GetSession after rotation failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session sealed under the prior key generation to still be readable")
	}
}

func TestHealthReportsCounts(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	s := testSession("assertion-health", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")
	if err := b.PutSession(ctx, s, time.Hour); err != nil {
		t.Fatalf("PutSession failed: %v", err)
	}

	h, err := b.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !h.OK || h.Backend != "memory" || h.Counts["sessions"] != 1 {
		t.Fatalf("unexpected health: %+v", h)
	}
}
