// Package backoff computes retry delays. It centralizes the exponential
// schedule shared by the retry classifier and the rate limiter's cooldown
// ramp so the two layers cannot drift apart.
package backoff

import (
	"math/rand"
	"time"
)

// maxExponent caps 2^attempt growth to avoid overflow on absurd attempt counts.
const maxExponent = 30

// Exponential returns initial * multiplier^attempt, capped at max, with an
// optional random jitter fraction in [0, 1] added on top. Attempt is indexed
// from 0.
func Exponential(attempt int, initial, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxExponent {
		attempt = maxExponent
	}

	d := time.Duration(float64(initial) * Pow(multiplier, attempt))
	if d < 0 || d > max {
		d = max
	}

	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		extra := time.Duration(float64(d) * jitter * rand.Float64())
		if d+extra > max {
			d = max
		} else {
			d += extra
		}
	}
	return d
}

// Pow computes base^exponent for non-negative integer exponents without
// pulling in math.Pow's special-case handling.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
