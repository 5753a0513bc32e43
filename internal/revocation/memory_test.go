package revocation

import (
	"context"
	"testing"
	"time"
)

func TestRevokeThenIsRevokedUntilExpiry(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	if err := b.Revoke(ctx, "assertion-1", time.Now().Add(time.Second).Unix()); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err := b.IsRevoked(ctx, "assertion-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("expected assertion to be revoked immediately after Revoke")
	}

	time.Sleep(1100 * time.Millisecond)
	revoked, err = b.IsRevoked(ctx, "assertion-1")
	if err != nil {
		t.Fatalf("IsRevoked after expiry failed: %v", err)
	}
	if revoked {
		t.Fatal("expected revocation to have lapsed after expiresAt")
	}
}

func TestIsRevokedFalseForUnknownID(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	revoked, err := b.IsRevoked(ctx, "never-revoked")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("expected unknown assertion ID to not be revoked")
	}
}

func TestRevokeAllForWallet(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	sessions := []WalletSession{
		{AssertionID: "a-1", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		{AssertionID: "a-2", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}
	if err := RevokeAllForWallet(ctx, b, sessions); err != nil {
		t.Fatalf("RevokeAllForWallet failed: %v", err)
	}

	for _, s := range sessions {
		revoked, err := b.IsRevoked(ctx, s.AssertionID)
		if err != nil {
			t.Fatalf("IsRevoked failed: %v", err)
		}
		if !revoked {
			t.Fatalf("expected %s to be revoked", s.AssertionID)
		}
	}
}

func TestStatsReportsEntryCount(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	_ = b.Revoke(ctx, "a-1", time.Now().Add(time.Hour).Unix())
	_ = b.Revoke(ctx, "a-2", time.Now().Add(time.Hour).Unix())

	stats, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Backend != "memory" || stats.Entries != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
