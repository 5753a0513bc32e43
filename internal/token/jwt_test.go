package token

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"
)

func newES256Manager(t *testing.T) *JWTManager {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ES256 key: %v", err)
	}
	m, err := NewJWTManager(AlgES256, "kid-1", key, "https://auth.example", "wcsap-clients", []byte("a-refresh-key-that-is-32-bytes!!"))
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

func newEdDSAManager(t *testing.T) *JWTManager {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ed25519 key: %v", err)
	}
	m, err := NewJWTManager(AlgEdDSA, "kid-2", priv, "https://auth.example", "wcsap-clients", []byte("a-refresh-key-that-is-32-bytes!!"))
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

func TestJWTIssueVerifyRoundTripES256(t *testing.T) {
	m := newES256Manager(t)
	issued, err := m.Issue(IssueParams{
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		AssertionID:   "assertion-1",
		Scope:         "session:read",
		TTL:           time.Hour,
		RefreshTTL:    24 * time.Hour,
		JKT:           "thumbprint-abc",
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, ok := m.Verify(issued.SessionToken)
	if !ok {
		t.Fatal("expected freshly issued ES256 token to verify")
	}
	if claims.JKT != "thumbprint-abc" {
		t.Fatalf("expected cnf.jkt to round-trip, got %q", claims.JKT)
	}
	if claims.Scope != "session:read" {
		t.Fatalf("expected scope to round-trip, got %q", claims.Scope)
	}
}

func TestJWTIssueVerifyRoundTripEdDSA(t *testing.T) {
	m := newEdDSAManager(t)
	issued, err := m.Issue(IssueParams{
		WalletAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
		TTL:           time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, ok := m.Verify(issued.SessionToken); !ok {
		t.Fatal("expected freshly issued EdDSA token to verify")
	}
}

func TestJWTVerifyRejectsWrongAudience(t *testing.T) {
	key, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	m, err := NewJWTManager(AlgES256, "kid", key, "https://auth.example", "audience-a", []byte("a-refresh-key-that-is-32-bytes!!"))
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	issued, err := m.Issue(IssueParams{WalletAddress: "0xabc", TTL: time.Hour, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other, err := NewJWTManager(AlgES256, "kid", key, "https://auth.example", "audience-b", []byte("a-refresh-key-that-is-32-bytes!!"))
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	if _, ok := other.Verify(issued.SessionToken); ok {
		t.Fatal("expected verification to fail for mismatched audience")
	}
}

func TestJWTVerifyRejectsWrongSigningKey(t *testing.T) {
	m := newES256Manager(t)
	issued, err := m.Issue(IssueParams{WalletAddress: "0xabc", TTL: time.Hour, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	impostor := newES256Manager(t)
	if _, ok := impostor.Verify(issued.SessionToken); ok {
		t.Fatal("expected verification to fail under a different signing key")
	}
}

func TestJWTVerifyRejectsExpiredToken(t *testing.T) {
	m := newES256Manager(t)
	issued, err := m.Issue(IssueParams{WalletAddress: "0xabc", TTL: 10 * time.Millisecond, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := m.Verify(issued.SessionToken); ok {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestJWTValidFormat(t *testing.T) {
	m := newES256Manager(t)
	issued, err := m.Issue(IssueParams{WalletAddress: "0xabc", TTL: 10 * time.Millisecond, RefreshTTL: time.Hour})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if !m.ValidFormat(issued.SessionToken) {
		t.Fatal("an expired but genuine JWT must still be format-valid")
	}

	for _, bad := range []string{"", "garbage", "only.two", "a.b.c.d"} {
		if m.ValidFormat(bad) {
			t.Fatalf("expected %q to be format-invalid", bad)
		}
	}
}

func TestJWKPublishesPublicMaterialOnly(t *testing.T) {
	m := newES256Manager(t)
	jwk, err := m.JWK()
	if err != nil {
		t.Fatalf("JWK failed: %v", err)
	}
	if jwk["kty"] != "EC" || jwk["crv"] != "P-256" || jwk["x"] == "" || jwk["y"] == "" {
		t.Fatalf("unexpected JWK shape: %+v", jwk)
	}
}
