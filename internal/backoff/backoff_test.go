package backoff

import (
	"testing"
	"time"
)

func TestExponentialSchedule(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, tc := range cases {
		got := Exponential(tc.attempt, time.Second, 30*time.Second, 2.0, 0)
		if got != tc.want {
			t.Errorf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestExponentialCapped(t *testing.T) {
	got := Exponential(10, time.Second, 30*time.Second, 2.0, 0)
	if got != 30*time.Second {
		t.Errorf("Expected cap at 30s, got %v", got)
	}
}

func TestExponentialNegativeAttempt(t *testing.T) {
	got := Exponential(-5, time.Second, 30*time.Second, 2.0, 0)
	if got != time.Second {
		t.Errorf("Expected negative attempt clamped to 0, got %v", got)
	}
}

func TestExponentialHugeAttemptNoOverflow(t *testing.T) {
	got := Exponential(1000, time.Second, 30*time.Second, 2.0, 0)
	if got != 30*time.Second {
		t.Errorf("Expected huge attempt capped, got %v", got)
	}
}

func TestExponentialJitterBounds(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second
	for i := 0; i < 100; i++ {
		got := Exponential(1, time.Second, max, 2.0, 0.5)
		if got < base || got > base+base/2 {
			t.Fatalf("Jittered delay %v outside [%v, %v]", got, base, base+base/2)
		}
	}
}

func TestPow(t *testing.T) {
	cases := []struct {
		base     float64
		exponent int
		want     float64
	}{
		{2.0, 0, 1},
		{2.0, 1, 2},
		{2.0, 5, 32},
		{1.5, 2, 2.25},
	}
	for _, tc := range cases {
		if got := Pow(tc.base, tc.exponent); got != tc.want {
			t.Errorf("Pow(%v, %d) = %v, want %v", tc.base, tc.exponent, got, tc.want)
		}
	}
}
