package gbif

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a per-minute request ceiling using a sliding window,
// and honors server-requested cooldowns: after a 429 it imposes a backoff
// deadline that suspends all callers, ramping exponentially when the server
// doesn't say how long to wait.
type RateLimiter struct {
	mu           sync.Mutex
	maxPerWindow int
	window       time.Duration
	windowStart  time.Time
	count        int

	backoffUntil   time.Time
	currentBackoff time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
	multiplier     float64
}

// NewRateLimiter creates a limiter admitting maxPerMinute requests per
// rolling 60-second window.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	return newRateLimiter(maxPerMinute, time.Minute)
}

func newRateLimiter(maxPerWindow int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxPerWindow:   maxPerWindow,
		window:         window,
		windowStart:    time.Now(),
		initialBackoff: time.Second,
		maxBackoff:     60 * time.Second,
		multiplier:     2.0,
	}
}

// Wait suspends the caller until a slot is available, then claims it.
// It returns early with the context error if ctx is cancelled while waiting.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()

		if wait := rl.backoffUntil.Sub(now); wait > 0 {
			rl.mu.Unlock()
			if err := sleepContext(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if now.Sub(rl.windowStart) >= rl.window {
			rl.windowStart = now
			rl.count = 0
		}

		if rl.count < rl.maxPerWindow {
			rl.count++
			rl.mu.Unlock()
			return nil
		}

		wait := rl.window - now.Sub(rl.windowStart)
		rl.mu.Unlock()
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
}

// NoteBackoff records a 429 from upstream and returns the cooldown to apply.
// When the server supplied a Retry-After delay it wins; otherwise the limiter
// ramps its own backoff exponentially up to maxBackoff. All callers admitted
// after this observe the cooldown deadline.
func (rl *RateLimiter) NoteBackoff(retryAfter time.Duration) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delay := retryAfter
	if delay <= 0 {
		if rl.currentBackoff <= 0 {
			rl.currentBackoff = rl.initialBackoff
		} else {
			rl.currentBackoff = time.Duration(float64(rl.currentBackoff) * rl.multiplier)
			if rl.currentBackoff > rl.maxBackoff {
				rl.currentBackoff = rl.maxBackoff
			}
		}
		delay = rl.currentBackoff
	}

	until := time.Now().Add(delay)
	if until.After(rl.backoffUntil) {
		rl.backoffUntil = until
	}
	return delay
}

// ResetBackoff clears the exponential ramp after a successful response.
// An in-force backoff deadline is left untouched.
func (rl *RateLimiter) ResetBackoff() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.currentBackoff = 0
}

// sleepContext sleeps for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
