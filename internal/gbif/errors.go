package gbif

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("gbif: circuit open")

	// ErrRateLimited is returned when a request is denied due to rate limiting
	// without being absorbed as a wait (normally the limiter suspends instead).
	ErrRateLimited = errors.New("gbif: rate limited")
)

// Error codes carried by UpstreamError, mapped from upstream status classes.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeNotFound    = "NOT_FOUND"
	CodeRateLimited = "RATE_LIMITED"
	CodeUpstream    = "UPSTREAM_UNAVAILABLE"
	CodeNetwork     = "NETWORK"
)

// UpstreamError is a terminal failure from the GBIF API: either a
// non-retryable status or a retryable one whose retry budget was exhausted.
type UpstreamError struct {
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("gbif: %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("gbif: %s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("gbif: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error codes for errors.Is.
func (e *UpstreamError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*UpstreamError); ok {
		return e.Code == t.Code
	}
	return false
}

// IsTransient reports whether err represents a condition that might succeed
// on a later retry: breaker rejection, rate limiting, 5xx and network errors.
// 4xx client errors (except 429) are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch ue.Code {
		case CodeRateLimited, CodeUpstream, CodeNetwork:
			return true
		}
	}
	return false
}

// codeForStatus maps an HTTP status to an UpstreamError code.
func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 500:
		return CodeUpstream
	default:
		return CodeBadRequest
	}
}

// newUpstreamError builds an UpstreamError from an upstream response,
// preferring the JSON error body's message when one is present.
func newUpstreamError(status int, body []byte) *UpstreamError {
	return &UpstreamError{
		Code:       codeForStatus(status),
		Message:    upstreamMessage(status, body),
		StatusCode: status,
	}
}

// newNetworkError wraps a transport-level failure.
func newNetworkError(cause error) *UpstreamError {
	return &UpstreamError{
		Code:    CodeNetwork,
		Message: "network request failed",
		Cause:   cause,
	}
}

// upstreamMessage extracts a human-readable message from an error body.
// GBIF returns either a JSON object with a "message" field or plain text.
func upstreamMessage(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return http.StatusText(status)
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	const maxMessageLen = 500
	if len(trimmed) > maxMessageLen {
		cut := maxMessageLen
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}
	return trimmed
}
