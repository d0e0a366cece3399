package gbif

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := newRateLimiter(5, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Expected first 5 requests to pass immediately, took %v", elapsed)
	}
}

func TestRateLimiterSuspendsUntilWindowRolls(t *testing.T) {
	rl := newRateLimiter(2, 80*time.Millisecond)
	ctx := context.Background()

	rl.Wait(ctx)
	rl.Wait(ctx)

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Expected third request to wait for window rollover, waited only %v", elapsed)
	}
}

func TestRateLimiterWaitContextCancel(t *testing.T) {
	rl := newRateLimiter(1, time.Hour)
	rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	if err == nil {
		t.Fatal("Expected context error when window is exhausted")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestRateLimiterBackoffRamp(t *testing.T) {
	rl := newRateLimiter(10, time.Minute)

	if d := rl.NoteBackoff(0); d != time.Second {
		t.Errorf("Expected first backoff=1s, got %v", d)
	}
	if d := rl.NoteBackoff(0); d != 2*time.Second {
		t.Errorf("Expected second backoff=2s, got %v", d)
	}
	if d := rl.NoteBackoff(0); d != 4*time.Second {
		t.Errorf("Expected third backoff=4s, got %v", d)
	}
}

func TestRateLimiterBackoffCapped(t *testing.T) {
	rl := newRateLimiter(10, time.Minute)

	var d time.Duration
	for i := 0; i < 10; i++ {
		d = rl.NoteBackoff(0)
	}
	if d != 60*time.Second {
		t.Errorf("Expected backoff capped at 60s, got %v", d)
	}
}

func TestRateLimiterRetryAfterWins(t *testing.T) {
	rl := newRateLimiter(10, time.Minute)

	rl.NoteBackoff(0)
	rl.NoteBackoff(0)

	if d := rl.NoteBackoff(7 * time.Second); d != 7*time.Second {
		t.Errorf("Expected server-supplied delay to win, got %v", d)
	}

	// The Retry-After override must not advance the ramp.
	if d := rl.NoteBackoff(0); d != 4*time.Second {
		t.Errorf("Expected ramp to continue at 4s, got %v", d)
	}
}

func TestRateLimiterResetBackoff(t *testing.T) {
	rl := newRateLimiter(10, time.Minute)

	rl.NoteBackoff(0)
	rl.NoteBackoff(0)
	rl.ResetBackoff()

	if d := rl.NoteBackoff(0); d != time.Second {
		t.Errorf("Expected ramp back at 1s after reset, got %v", d)
	}
}

func TestRateLimiterBackoffSuspendsWait(t *testing.T) {
	rl := newRateLimiter(10, time.Minute)
	rl.NoteBackoff(60 * time.Millisecond)

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected Wait to honor the backoff deadline, waited only %v", elapsed)
	}
}
