// Package audit implements an append-only record of authentication
// events (challenge issuance, verification, session mint, refresh,
// revoke, rate-limit violations), indexed by wallet and by time.
package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType is the taxonomy of recorded authentication events.
type EventType string

const (
	EventChallengeIssued   EventType = "challenge_issued"
	EventVerifySuccess     EventType = "verify_success"
	EventVerifyFailed      EventType = "verify_failed"
	EventSessionMinted     EventType = "session_minted"
	EventSessionRefreshed  EventType = "session_refreshed"
	EventSessionRevoked    EventType = "session_revoked"
	EventRateLimitViolated EventType = "rate_limit_violated"
	EventStepUpRequired    EventType = "step_up_required"
	EventStepUpCompleted   EventType = "step_up_completed"
)

// Event is one append-only audit record. Event IDs are UUIDs, not raw
// CSPRNG hex: audit IDs are correlation handles, not secrets, unlike
// the hex identifiers used for challenges and tokens.
type Event struct {
	EventID     string    `json:"event_id"`
	Wallet      string    `json:"wallet"`
	Type        EventType `json:"type"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	AssertionID string    `json:"assertion_id,omitempty"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	IP          string    `json:"ip,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Log is the capability interface the authenticator and HTTP adapter
// record through and read diagnostics from.
type Log interface {
	Record(ctx context.Context, e Event) error
	ByWallet(ctx context.Context, wallet string, limit int) ([]Event, error)
	Since(ctx context.Context, since time.Time, limit int) ([]Event, error)
}

// MemoryLog is an in-process append-only log. A production deployment
// would pair this with a durable sink; the in-memory form satisfies
// the Log contract's read/index requirements.
type MemoryLog struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryLog builds an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Record appends e, assigning a UUID event ID if the caller left it
// blank and stamping CreatedAt if zero.
func (l *MemoryLog) Record(ctx context.Context, e Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

// ByWallet returns up to limit most-recent events for wallet
// (case-insensitive), newest first. limit <= 0 means unlimited.
func (l *MemoryLog) ByWallet(ctx context.Context, wallet string, limit int) ([]Event, error) {
	wanted := strings.ToLower(wallet)

	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for i := len(l.events) - 1; i >= 0; i-- {
		if strings.ToLower(l.events[i].Wallet) == wanted {
			out = append(out, l.events[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Since returns up to limit events recorded at or after since, ordered
// oldest first. limit <= 0 means unlimited.
func (l *MemoryLog) Since(ctx context.Context, since time.Time, limit int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, e := range l.events {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
