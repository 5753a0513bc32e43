package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

type walletState struct {
	events       map[Action][]time.Time
	lockoutUntil time.Time
	violations   []time.Time
}

// MemoryBackend is an in-process sliding-window limiter: one
// mutex-guarded map per wallet, swept periodically by a cleanup
// goroutine, tracking per-(wallet, action) event timestamps.
type MemoryBackend struct {
	mu    sync.Mutex
	state map[string]*walletState
	cfg   Config
	stop  chan struct{}
}

// NewMemoryBackend builds a MemoryBackend and starts its sweep
// goroutine at the given interval.
func NewMemoryBackend(cfg Config, sweepInterval time.Duration) *MemoryBackend {
	b := &MemoryBackend{
		state: make(map[string]*walletState),
		cfg:   cfg,
		stop:  make(chan struct{}),
	}
	go b.sweepLoop(sweepInterval)
	return b
}

func (b *MemoryBackend) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.sweep()
		case <-b.stop:
			return
		}
	}
}

func (b *MemoryBackend) sweep() {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for wallet, st := range b.state {
		st.events = pruneWindow(st.events, now, 24*time.Hour)
		st.violations = pruneSlice(st.violations, now, b.cfg.ViolationTTL)
		if len(st.events) == 0 && len(st.violations) == 0 && now.After(st.lockoutUntil) {
			delete(b.state, wallet)
		}
	}
}

func pruneSlice(ts []time.Time, now time.Time, ttl time.Duration) []time.Time {
	cutoff := now.Add(-ttl)
	out := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func pruneWindow(events map[Action][]time.Time, now time.Time, maxWindow time.Duration) map[Action][]time.Time {
	cutoff := now.Add(-maxWindow)
	for action, ts := range events {
		kept := ts[:0]
		for _, t := range ts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(events, action)
		} else {
			events[action] = kept
		}
	}
	return events
}

func (b *MemoryBackend) stateFor(wallet string) *walletState {
	st, ok := b.state[wallet]
	if !ok {
		st = &walletState{events: make(map[Action][]time.Time)}
		b.state[wallet] = st
	}
	return st
}

func countSince(ts []time.Time, since time.Time) int {
	n := 0
	for _, t := range ts {
		if t.After(since) {
			n++
		}
	}
	return n
}

// Check reports whether wallet may perform action right now, with
// lockout-then-hourly-then-daily precedence. It never
// returns an error: a panicking backend would defeat the fail-open
// guarantee, so Check's only failure mode is "always allowed".
func (b *MemoryBackend) Check(ctx context.Context, wallet string, action Action) (Result, error) {
	wallet = strings.ToLower(wallet)
	now := time.Now()
	limits := b.cfg.limitsFor(action)

	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stateFor(wallet)

	if now.Before(st.lockoutUntil) {
		remaining := st.lockoutUntil.Sub(now)
		return Result{Allowed: false, Remaining: 0, Reason: fmt.Sprintf("account locked, try again in %ds", int(remaining.Seconds()))}, nil
	}

	hourly := countSince(st.events[action], now.Add(-time.Hour))
	if hourly >= limits.Hourly {
		return Result{Allowed: false, Remaining: 0, Reason: fmt.Sprintf("hourly rate limit exceeded (%d requests/hour)", limits.Hourly)}, nil
	}
	daily := countSince(st.events[action], now.Add(-24*time.Hour))
	if daily >= limits.Daily {
		return Result{Allowed: false, Remaining: 0, Reason: fmt.Sprintf("daily rate limit exceeded (%d requests/day)", limits.Daily)}, nil
	}

	remaining := limits.Hourly - hourly - 1
	if d := limits.Daily - daily - 1; d < remaining {
		remaining = d
	}
	return Result{Allowed: true, Remaining: remaining, Reason: "OK"}, nil
}

// Record logs one occurrence of action for wallet, and on a failed
// auth attempt checks whether the hourly failure count has crossed the
// lockout threshold.
func (b *MemoryBackend) Record(ctx context.Context, wallet string, action Action, success bool) error {
	wallet = strings.ToLower(wallet)
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stateFor(wallet)
	st.events[action] = append(st.events[action], now)

	if action == ActionFailedAuth && !success {
		b.applyLockoutLocked(st, now)
	}
	return nil
}

func (b *MemoryBackend) applyLockoutLocked(st *walletState, now time.Time) {
	failed := countSince(st.events[ActionFailedAuth], now.Add(-time.Hour))
	if failed < b.cfg.MaxFailedBeforeLockout {
		return
	}

	violations := countSince(st.violations, now.Add(-b.cfg.ViolationTTL))
	duration := time.Duration(float64(b.cfg.BaseLockoutDuration) * math.Pow(b.cfg.LockoutMultiplier, float64(violations)))
	if duration > b.cfg.MaxLockoutDuration {
		duration = b.cfg.MaxLockoutDuration
	}

	st.lockoutUntil = now.Add(duration)
	st.violations = append(st.violations, now)
}

func (b *MemoryBackend) Status(ctx context.Context, wallet string) (WalletStatus, error) {
	wallet = strings.ToLower(wallet)
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stateFor(wallet)

	counts := make(map[Action]ActionCounts, len(b.cfg.PerAction))
	for action, limits := range b.cfg.PerAction {
		hourly := countSince(st.events[action], now.Add(-time.Hour))
		daily := countSince(st.events[action], now.Add(-24*time.Hour))
		counts[action] = ActionCounts{
			Hourly: CountLimit{Count: hourly, Limit: limits.Hourly},
			Daily:  CountLimit{Count: daily, Limit: limits.Daily},
		}
	}

	lockoutRemaining := time.Duration(0)
	if now.Before(st.lockoutUntil) {
		lockoutRemaining = st.lockoutUntil.Sub(now)
	}

	return WalletStatus{
		WalletAddress:    wallet,
		IsLockedOut:      now.Before(st.lockoutUntil),
		LockoutRemaining: lockoutRemaining,
		ViolationCount:   countSince(st.violations, now.Add(-b.cfg.ViolationTTL)),
		Counts:           counts,
	}, nil
}

// Reset clears all rate-limit state for wallet, used by the admin
// "reset_wallet_limits" operation.
func (b *MemoryBackend) Reset(ctx context.Context, wallet string) error {
	wallet = strings.ToLower(wallet)
	b.mu.Lock()
	delete(b.state, wallet)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Close(ctx context.Context) error {
	close(b.stop)
	return nil
}
