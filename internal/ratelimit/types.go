// Package ratelimit implements sliding-window per-(wallet, action)
// limits at hour/day granularity, progressive lockout on repeated
// failed_auth, and a fail-open policy on backend outage.
package ratelimit

import (
	"context"
	"time"
)

// Action is the taxonomy of rate-limited operations, kept as typed
// constants rather than bare strings.
type Action string

const (
	ActionChallengeRequest Action = "challenge_request"
	ActionVerifyAttempt    Action = "verify_attempt"
	ActionRefreshRequest   Action = "refresh_request"
	ActionFailedAuth       Action = "failed_auth"
	ActionLoginSuccess     Action = "login_success"
)

// Limits is the hourly/daily cap pair for one action.
type Limits struct {
	Hourly int
	Daily  int
}

// Config carries the per-action limits and the progressive-lockout
// parameters.
type Config struct {
	PerAction map[Action]Limits

	MaxFailedBeforeLockout int
	BaseLockoutDuration    time.Duration
	LockoutMultiplier      float64
	MaxLockoutDuration     time.Duration
	ViolationTTL           time.Duration
}

// DefaultConfig returns production-reasonable caps for each action.
func DefaultConfig() Config {
	return Config{
		PerAction: map[Action]Limits{
			ActionChallengeRequest: {Hourly: 50, Daily: 200},
			ActionVerifyAttempt:    {Hourly: 50, Daily: 200},
			ActionRefreshRequest:   {Hourly: 100, Daily: 500},
			ActionFailedAuth:       {Hourly: 10, Daily: 30},
			ActionLoginSuccess:     {Hourly: 100, Daily: 1000},
		},
		MaxFailedBeforeLockout: 5,
		BaseLockoutDuration:    15 * time.Minute,
		LockoutMultiplier:      2.0,
		MaxLockoutDuration:     24 * time.Hour,
		ViolationTTL:           7 * 24 * time.Hour,
	}
}

func (c Config) limitsFor(action Action) Limits {
	if l, ok := c.PerAction[action]; ok {
		return l
	}
	return Limits{Hourly: 100, Daily: 1000}
}

// Result is the outcome of a Check call.
type Result struct {
	Allowed   bool
	Remaining int
	Reason    string
}

// Backend is the capability interface both rate-limiter implementations
// satisfy. A backend outage during Check MUST fail open (see
// MemoryBackend/OlricBackend doc comments); correctness is guarded by
// signature verification, not the limiter.
type Backend interface {
	Check(ctx context.Context, wallet string, action Action) (Result, error)
	Record(ctx context.Context, wallet string, action Action, success bool) error
	Status(ctx context.Context, wallet string) (WalletStatus, error)
	Reset(ctx context.Context, wallet string) error
	Close(ctx context.Context) error
}

// WalletStatus is the diagnostic view of one wallet's rate-limit
// state.
type WalletStatus struct {
	WalletAddress    string                  `json:"wallet_address"`
	IsLockedOut      bool                    `json:"is_locked_out"`
	LockoutRemaining time.Duration           `json:"lockout_remaining"`
	ViolationCount   int                     `json:"violation_count"`
	Counts           map[Action]ActionCounts `json:"current_counts"`
}

// ActionCounts is the hourly/daily usage-vs-limit pair for one action.
type ActionCounts struct {
	Hourly CountLimit `json:"hourly"`
	Daily  CountLimit `json:"daily"`
}

// CountLimit pairs a current count with its configured ceiling.
type CountLimit struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}
