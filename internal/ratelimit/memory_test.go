package ratelimit

import (
	"context"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PerAction[ActionVerifyAttempt] = Limits{Hourly: 3, Daily: 100}
	cfg.PerAction[ActionFailedAuth] = Limits{Hourly: 100, Daily: 1000}
	cfg.MaxFailedBeforeLockout = 3
	cfg.BaseLockoutDuration = 50 * time.Millisecond
	cfg.LockoutMultiplier = 2.0
	cfg.MaxLockoutDuration = time.Second
	return cfg
}

func TestCheckAllowsUntilHourlyLimit(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(testConfig(), time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	for i := 0; i < 3; i++ {
		res, err := b.Check(ctx, "0xWallet", ActionVerifyAttempt)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("expected attempt %d to be allowed", i)
		}
		if err := b.Record(ctx, "0xWallet", ActionVerifyAttempt, true); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	res, err := b.Check(ctx, "0xWallet", ActionVerifyAttempt)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected the 4th attempt within the window to be denied")
	}
}

func TestCheckIsCaseInsensitivePerWallet(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(testConfig(), time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	for i := 0; i < 3; i++ {
		_ = b.Record(ctx, "0xABC", ActionVerifyAttempt, true)
	}

	res, err := b.Check(ctx, "0xabc", ActionVerifyAttempt)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected lowercase wallet to share rate-limit state with the uppercase form")
	}
}

func TestLockoutEscalatesDurationGeometrically(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	b := NewMemoryBackend(cfg, time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	trigger := func() {
		for i := 0; i < cfg.MaxFailedBeforeLockout; i++ {
			_ = b.Record(ctx, "0xWallet", ActionFailedAuth, false)
		}
	}

	trigger()
	st := b.stateFor("0xwallet")
	first := st.lockoutUntil.Sub(time.Now())
	if first <= 0 {
		t.Fatal("expected a lockout to be in effect after first trigger")
	}

	time.Sleep(first + 10*time.Millisecond)
	trigger()
	second := st.lockoutUntil.Sub(time.Now())

	if second < first {
		t.Fatalf("expected second lockout (%v) to be longer than first (%v)", second, first)
	}
}

func TestResetClearsState(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(testConfig(), time.Hour)
	t.Cleanup(func() { b.Close(ctx) })

	for i := 0; i < 3; i++ {
		_ = b.Record(ctx, "0xWallet", ActionVerifyAttempt, true)
	}
	if err := b.Reset(ctx, "0xWallet"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	res, err := b.Check(ctx, "0xWallet", ActionVerifyAttempt)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected rate limit state to be cleared after Reset")
	}
}
