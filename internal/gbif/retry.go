package gbif

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/taksalab/gbifmcp/internal/backoff"
)

// outcome is the classifier's verdict on a failed attempt: either retry
// after a delay, or surface a terminal error. Modeling the decision as an
// explicit value keeps the retry loop free of exception-style control flow.
type outcome struct {
	retry bool
	delay time.Duration
	err   error
}

func retryAfter(delay time.Duration) outcome {
	return outcome{retry: true, delay: delay}
}

func terminal(err error) outcome {
	return outcome{err: err}
}

// classify inspects a failed attempt and decides what happens next.
// Rules, in order:
//
//  1. 429 is always retryable; the delay comes from Retry-After when present,
//     otherwise from the rate limiter's exponential cooldown ramp. There is
//     no attempt ceiling for 429.
//  2. 5xx is retryable up to retryAttempts with delay retryDelay * 2^attempt.
//     Exhausting the budget converts to an UpstreamError with the last status.
//  3. Anything else (4xx except 429) is terminal immediately.
//
// attempt counts prior 5xx retries for this logical request, indexed from 0.
func (c *Client) classify(status int, header http.Header, body []byte, attempt int) outcome {
	switch {
	case status == http.StatusTooManyRequests:
		delay := c.limiter.NoteBackoff(parseRetryAfter(header.Get("Retry-After")))
		return retryAfter(delay)

	case status >= 500 && status < 600:
		if attempt < c.retryAttempts {
			return retryAfter(backoff.Exponential(attempt, c.retryDelay, c.maxRetryDelay, 2.0, c.retryJitter))
		}
		return terminal(newUpstreamError(status, body))

	default:
		return terminal(newUpstreamError(status, body))
	}
}

// parseRetryAfter parses a Retry-After header value, supporting both
// delay-seconds and HTTP-date formats. Values are capped at one hour;
// unparseable or non-positive values yield 0.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		delay := time.Duration(seconds) * time.Second
		if delay > time.Hour {
			delay = time.Hour
		}
		return delay
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
