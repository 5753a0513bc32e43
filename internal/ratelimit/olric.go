package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	olriclib "github.com/olric-data/olric"
)

// OlricBackend is a distributed rate limiter using fixed time-bucketed
// counters: Olric's DMap exposes Get/Put with TTL but no sorted-set
// score range query, so each (wallet, action, hour|day) window is one
// counter key whose TTL IS the window boundary, bucketed by truncating
// the clock to the window size. This trades exact sliding-window
// precision for a simple, race-tolerant counter — acceptable for an
// advisory limiter where fail-open takes priority over precision.
type OlricBackend struct {
	client olriclib.Client
	dmap   olriclib.DMap
	cfg    Config
}

// NewOlricBackend dials servers and opens the rate-limit DMap.
func NewOlricBackend(ctx context.Context, servers []string, cfg Config) (*OlricBackend, error) {
	client, err := olriclib.NewClusterClient(servers)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: failed to create olric cluster client: %w", err)
	}
	dmap, err := client.NewDMap("w_csap_ratelimit")
	if err != nil {
		return nil, fmt.Errorf("ratelimit: failed to open ratelimit dmap: %w", err)
	}
	return &OlricBackend{client: client, dmap: dmap, cfg: cfg}, nil
}

func windowKey(wallet string, action Action, window string, bucket int64) string {
	return fmt.Sprintf("w_csap:ratelimit:%s:%s:%s:%d", wallet, action, window, bucket)
}

func lockoutKey(wallet string) string   { return "w_csap:lockout:" + wallet }
func violationKey(wallet string) string { return "w_csap:violation:" + wallet }

func (b *OlricBackend) getCount(ctx context.Context, key string) int {
	gr, err := b.dmap.Get(ctx, key)
	if err != nil {
		return 0
	}
	s, err := gr.String()
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

func (b *OlricBackend) windowCounts(ctx context.Context, wallet string, action Action, now time.Time) (hourly, daily int) {
	hourBucket := now.Truncate(time.Hour).Unix()
	dayBucket := now.Truncate(24 * time.Hour).Unix()
	hourly = b.getCount(ctx, windowKey(wallet, action, "hour", hourBucket))
	daily = b.getCount(ctx, windowKey(wallet, action, "day", dayBucket))
	return
}

// Check never surfaces a backend error: on any Olric failure it fails
// open. Logging is the caller's (authenticator's) job since this
// package has no logger dependency of its own.
func (b *OlricBackend) Check(ctx context.Context, wallet string, action Action) (Result, error) {
	wallet = strings.ToLower(wallet)
	now := time.Now()
	limits := b.cfg.limitsFor(action)

	if _, err := b.dmap.Get(ctx, lockoutKey(wallet)); err == nil {
		return Result{Allowed: false, Remaining: 0, Reason: "account locked"}, nil
	}

	hourly, daily := b.windowCounts(ctx, wallet, action, now)
	if hourly >= limits.Hourly {
		return Result{Allowed: false, Remaining: 0, Reason: fmt.Sprintf("hourly rate limit exceeded (%d requests/hour)", limits.Hourly)}, nil
	}
	if daily >= limits.Daily {
		return Result{Allowed: false, Remaining: 0, Reason: fmt.Sprintf("daily rate limit exceeded (%d requests/day)", limits.Daily)}, nil
	}

	remaining := limits.Hourly - hourly - 1
	if d := limits.Daily - daily - 1; d < remaining {
		remaining = d
	}
	return Result{Allowed: true, Remaining: remaining, Reason: "OK"}, nil
}

func (b *OlricBackend) Record(ctx context.Context, wallet string, action Action, success bool) error {
	wallet = strings.ToLower(wallet)
	now := time.Now()

	hourBucket := now.Truncate(time.Hour)
	dayBucket := now.Truncate(24 * time.Hour)
	hourKey := windowKey(wallet, action, "hour", hourBucket.Unix())
	dayKey := windowKey(wallet, action, "day", dayBucket.Unix())

	hourly := b.getCount(ctx, hourKey) + 1
	daily := b.getCount(ctx, dayKey) + 1

	if err := b.dmap.Put(ctx, hourKey, strconv.Itoa(hourly), olriclib.EX(time.Hour-now.Sub(hourBucket))); err != nil {
		return fmt.Errorf("ratelimit: failed to record hourly count: %w", err)
	}
	if err := b.dmap.Put(ctx, dayKey, strconv.Itoa(daily), olriclib.EX(24*time.Hour-now.Sub(dayBucket))); err != nil {
		return fmt.Errorf("ratelimit: failed to record daily count: %w", err)
	}

	if action == ActionFailedAuth && !success {
		return b.applyLockout(ctx, wallet, now)
	}
	return nil
}

func (b *OlricBackend) applyLockout(ctx context.Context, wallet string, now time.Time) error {
	failedHourly, _ := b.windowCounts(ctx, wallet, ActionFailedAuth, now)
	if failedHourly < b.cfg.MaxFailedBeforeLockout {
		return nil
	}

	violations := b.getCount(ctx, violationKey(wallet))
	duration := time.Duration(float64(b.cfg.BaseLockoutDuration) * math.Pow(b.cfg.LockoutMultiplier, float64(violations)))
	if duration > b.cfg.MaxLockoutDuration {
		duration = b.cfg.MaxLockoutDuration
	}

	if err := b.dmap.Put(ctx, lockoutKey(wallet), "1", olriclib.EX(duration)); err != nil {
		return fmt.Errorf("ratelimit: failed to apply lockout: %w", err)
	}
	if err := b.dmap.Put(ctx, violationKey(wallet), strconv.Itoa(violations+1), olriclib.EX(b.cfg.ViolationTTL)); err != nil {
		return fmt.Errorf("ratelimit: failed to record violation: %w", err)
	}
	return nil
}

func (b *OlricBackend) Status(ctx context.Context, wallet string) (WalletStatus, error) {
	wallet = strings.ToLower(wallet)
	now := time.Now()

	counts := make(map[Action]ActionCounts, len(b.cfg.PerAction))
	for action, limits := range b.cfg.PerAction {
		hourly, daily := b.windowCounts(ctx, wallet, action, now)
		counts[action] = ActionCounts{
			Hourly: CountLimit{Count: hourly, Limit: limits.Hourly},
			Daily:  CountLimit{Count: daily, Limit: limits.Daily},
		}
	}

	_, lockedOut := b.dmap.Get(ctx, lockoutKey(wallet))
	return WalletStatus{
		WalletAddress:  wallet,
		IsLockedOut:    lockedOut == nil,
		ViolationCount: b.getCount(ctx, violationKey(wallet)),
		Counts:         counts,
	}, nil
}

func (b *OlricBackend) Reset(ctx context.Context, wallet string) error {
	wallet = strings.ToLower(wallet)
	_, _ = b.dmap.Delete(ctx, lockoutKey(wallet))
	_, _ = b.dmap.Delete(ctx, violationKey(wallet))
	for action := range b.cfg.PerAction {
		now := time.Now()
		_, _ = b.dmap.Delete(ctx, windowKey(wallet, action, "hour", now.Truncate(time.Hour).Unix()))
		_, _ = b.dmap.Delete(ctx, windowKey(wallet, action, "day", now.Truncate(24*time.Hour).Unix()))
	}
	return nil
}

func (b *OlricBackend) Close(ctx context.Context) error {
	return b.client.Close(ctx)
}
