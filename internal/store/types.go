// Package store implements encrypted, TTL-bound persistence for
// Challenge and SessionAssertion records behind a pluggable backend.
package store

import (
	"context"
	"time"

	"github.com/Lento47/GigChain-wcsap/internal/challenge"
)

// Session is the persisted form of a SessionAssertion.
type Session struct {
	AssertionID   string            `json:"assertion_id"`
	WalletAddress string            `json:"wallet_address"`
	IssuedAt      int64             `json:"issued_at"`
	NotBefore     int64             `json:"not_before"`
	ExpiresAt     int64             `json:"expires_at"`
	LastActivity  int64             `json:"last_activity"`
	SessionToken  string            `json:"session_token"`
	RefreshToken  string            `json:"refresh_token"`
	Signature     string            `json:"signature"`
	Metadata      map[string]string `json:"metadata"`
}

// IsValid reports whether the session is usable at the given instant:
// not_before <= now < expires_at.
func (s *Session) IsValid(now time.Time) bool {
	ts := now.Unix()
	return ts >= s.NotBefore && ts < s.ExpiresAt
}

// Health summarizes backend status for readiness probes.
type Health struct {
	OK      bool           `json:"ok"`
	Backend string         `json:"backend"`
	Counts  map[string]int `json:"counts"`
}

// Backend is the capability interface for the session/challenge store.
// Implementations own TTL enforcement: MemoryBackend sweeps periodically,
// OlricBackend relies on the distributed KV's native expiry.
type Backend interface {
	PutSession(ctx context.Context, s *Session, ttl time.Duration) error
	GetSession(ctx context.Context, assertionID string) (*Session, error)
	DeleteSession(ctx context.Context, assertionID string) error
	// SessionsByWallet returns all non-expired sessions for wallet
	// (case-insensitive). OlricBackend scans with a cursor; MemoryBackend
	// iterates a snapshot of all its session IDs.
	SessionsByWallet(ctx context.Context, wallet string) ([]*Session, error)

	PutChallenge(ctx context.Context, c *challenge.Challenge, ttl time.Duration) error
	// GetChallenge returns the challenge if present and untampered, else
	// (nil, nil). A failed tamper check deletes the record as a side
	// effect and also returns (nil, nil).
	GetChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error)
	DeleteChallenge(ctx context.Context, challengeID string) error
	// ConsumeChallenge atomically reads and deletes a challenge: two
	// concurrent callers racing the same challengeID cannot both observe
	// a non-nil result. This is what backs the authenticator's
	// single-use verify step.
	ConsumeChallenge(ctx context.Context, challengeID string) (*challenge.Challenge, error)

	RotateKeys(ctx context.Context) error
	Health(ctx context.Context) (Health, error)
	Close(ctx context.Context) error
}
