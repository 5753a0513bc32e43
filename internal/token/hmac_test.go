package token

import (
	"strings"
	"testing"
	"time"
)

func newTestManager() *HMACManager {
	return NewHMACManager([]byte("a-mac-key-that-is-at-least-32-bytes!!"))
}

func TestHMACIssueVerifyRoundTrip(t *testing.T) {
	m := newTestManager()
	issued, err := m.Issue(IssueParams{
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		AssertionID:   "assertion-1",
		TTL:           time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, ok := m.Verify(issued.SessionToken)
	if !ok {
		t.Fatal("expected freshly issued token to verify")
	}
	if claims.WalletAddress != "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0" {
		t.Fatalf("unexpected wallet in claims: %s", claims.WalletAddress)
	}
}

func TestHMACVerifyRejectsFieldTampering(t *testing.T) {
	m := newTestManager()
	issued, err := m.Issue(IssueParams{
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		TTL:           time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	fields := strings.Split(issued.SessionToken, ".")
	for i := range fields {
		tampered := make([]string, len(fields))
		copy(tampered, fields)
		tampered[i] = tampered[i] + "x"
		token := strings.Join(tampered, ".")

		if _, ok := m.Verify(token); ok {
			t.Fatalf("expected field %d tampering to fail verification", i)
		}
	}
}

func TestHMACVerifyRejectsTruncation(t *testing.T) {
	m := newTestManager()
	issued, err := m.Issue(IssueParams{WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", TTL: time.Hour, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	truncated := issued.SessionToken[:len(issued.SessionToken)-10]
	if _, ok := m.Verify(truncated); ok {
		t.Fatal("expected truncated token to fail verification")
	}
}

func TestHMACVerifyRejectsExpiredToken(t *testing.T) {
	m := newTestManager()
	issued, err := m.Issue(IssueParams{WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", TTL: 10 * time.Millisecond, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := m.Verify(issued.SessionToken); ok {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestHMACVerifyEnforcesMinimumDuration(t *testing.T) {
	m := newTestManager()
	start := time.Now()
	m.Verify("garbage")
	if time.Since(start) < minVerifyDuration {
		t.Fatal("expected Verify to pad execution to the minimum duration")
	}
}

func TestHMACRefreshRoundTripSurvivesExpiredSession(t *testing.T) {
	m := newTestManager()
	issued, err := m.Issue(IssueParams{
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		AssertionID:   "assertion-2",
		TTL:           10 * time.Millisecond,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, ok := m.Verify(issued.SessionToken); ok {
		t.Fatal("session token should have expired")
	}

	wallet, assertionID, ok := m.VerifyRefresh(issued.RefreshToken)
	if !ok {
		t.Fatal("expected refresh token to still verify after session expiry")
	}
	if wallet != "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0" || assertionID != "assertion-2" {
		t.Fatalf("unexpected refresh claims: wallet=%s assertionID=%s", wallet, assertionID)
	}
}

func TestHMACValidFormat(t *testing.T) {
	m := newTestManager()
	issued, err := m.Issue(IssueParams{WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", TTL: 10 * time.Millisecond, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if !m.ValidFormat(issued.SessionToken) {
		t.Fatal("an expired but genuine token must still be format-valid")
	}

	for _, bad := range []string{"", "garbage", "a.b.c", "a.b.c.d.e", "a.b.not-a-number.d"} {
		if m.ValidFormat(bad) {
			t.Fatalf("expected %q to be format-invalid", bad)
		}
	}
}

func TestHMACRefreshRejectsTampering(t *testing.T) {
	m := newTestManager()
	issued, err := m.Issue(IssueParams{WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", AssertionID: "assertion-3", TTL: time.Hour, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	last := "0"
	if strings.HasSuffix(issued.RefreshToken, "0") {
		last = "1"
	}
	tampered := issued.RefreshToken[:len(issued.RefreshToken)-1] + last
	if _, _, ok := m.VerifyRefresh(tampered); ok {
		t.Fatal("expected tampered refresh token to fail verification")
	}
}
