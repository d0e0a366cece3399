package gbif

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taksalab/gbifmcp/internal/singleflight"
)

// Client is a protected GBIF API client. Every outbound call funnels through
// the same path: circuit breaker gate, cache lookup (GET), concurrency queue
// admission, rate limiter wait, HTTP round trip, retry classification. It is
// safe for concurrent use; create one instance per upstream target.
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	baseURL        string
	username       string
	password       string
	userAgent      string

	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	retryJitter   float64

	breaker *CircuitBreaker
	limiter *RateLimiter
	queue   *Queue
	cache   *Cache
	flight  *singleflight.Group

	logger    *zap.Logger
	metrics   *MetricsCollector
	requestID func() string

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		baseURL:       DefaultBaseURL,
		userAgent:     UserAgent(),
		timeout:       30 * time.Second,
		retryAttempts: 3,
		retryDelay:    time.Second,
		maxRetryDelay: 30 * time.Second,
		retryJitter:   0,
		breaker:       NewCircuitBreaker(CircuitBreakerConfig{}),
		limiter:       NewRateLimiter(60),
		queue:         NewQueue(5),
		cache:         NewCache(50<<20, 10*time.Minute),
		flight:        singleflight.New(),
		logger:        zap.NewNop(),
		requestID:     uuid.NewString,
	}

	for _, option := range options {
		option(client)
	}

	client.httpClient = &http.Client{Timeout: client.timeout}
	// Download payloads are large binary archives; give them twice the budget.
	client.downloadClient = &http.Client{Timeout: 2 * client.timeout}

	if err := client.validateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get performs a GET against path with the given query parameters and
// returns the raw JSON payload. Successful responses are cached by request
// fingerprint; concurrent identical GETs share one upstream round trip.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.request(ctx, http.MethodGet, path, params, nil)
}

// Post performs a POST with a JSON body and returns the raw response payload.
func (c *Client) Post(ctx context.Context, path string, body any, params url.Values) (json.RawMessage, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gbif: encoding request body: %w", err)
		}
	}
	return c.request(ctx, http.MethodPost, path, params, encoded)
}

// Delete performs a DELETE against path.
func (c *Client) Delete(ctx context.Context, path string, params url.Values) error {
	_, err := c.request(ctx, http.MethodDelete, path, params, nil)
	return err
}

// Download retrieves a binary payload from rawURL. It shares the breaker,
// queue and rate-limit path with regular requests but bypasses the cache
// and uses a doubled timeout.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	requestID := c.requestID()

	if !c.breaker.Allow() {
		c.logger.Warn("circuit breaker rejected download",
			zap.String("requestID", requestID),
			zap.String("url", rawURL))
		return nil, fmt.Errorf("gbif: download %s: %w", rawURL, ErrCircuitOpen)
	}

	var payload []byte
	err := c.queue.Do(ctx, func() error {
		var innerErr error
		payload, innerErr = c.attempt(ctx, http.MethodGet, rawURL, nil, requestID, true)
		return innerErr
	})
	return payload, err
}

// CircuitState returns the breaker's current state name.
func (c *Client) CircuitState() string {
	return c.breaker.State().String()
}

// CacheStats returns the response cache's entry count and byte size.
// A disabled cache reports zeros.
func (c *Client) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	return c.cache.Stats()
}

// ClearCache drops all cached responses.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
		c.metrics.RecordCacheSize(0)
	}
}

// ResetCircuitBreaker returns the breaker to closed with counters cleared.
func (c *Client) ResetCircuitBreaker() {
	c.breaker.Reset()
	c.metrics.RecordCircuitBreakerState(c.breaker.State())
}

// Reset clears the cache and resets the circuit breaker.
func (c *Client) Reset() {
	c.ClearCache()
	c.ResetCircuitBreaker()
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// request is the orchestrator every logical call funnels through.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body []byte) (json.RawMessage, error) {
	start := time.Now()
	requestID := c.requestID()

	c.logger.Debug("starting request",
		zap.String("requestID", requestID),
		zap.String("method", method),
		zap.String("path", path))

	c.metrics.RecordRequestStart()
	defer c.metrics.RecordRequestEnd()

	if !c.breaker.Allow() {
		c.logger.Warn("circuit breaker rejected request",
			zap.String("requestID", requestID),
			zap.String("method", method),
			zap.String("path", path))
		return nil, fmt.Errorf("gbif: %s %s: %w", method, path, ErrCircuitOpen)
	}

	cacheable := method == http.MethodGet && c.cache != nil
	fingerprint := CacheKey(method, path, params)

	if cacheable {
		if value, found := c.cache.Get(fingerprint); found {
			c.logger.Debug("cache hit",
				zap.String("requestID", requestID),
				zap.String("key", fingerprint))
			c.metrics.RecordCacheHit()
			c.metrics.RecordRequest(method, path, http.StatusOK, time.Since(start))
			return value, nil
		}
		c.metrics.RecordCacheMiss()
	}

	target := c.buildURL(path, params)

	execute := func() ([]byte, error) {
		var payload []byte
		err := c.queue.Do(ctx, func() error {
			var innerErr error
			payload, innerErr = c.attempt(ctx, method, target, body, requestID, false)
			return innerErr
		})
		return payload, err
	}

	var payload []byte
	var err error
	if method == http.MethodGet && c.flight != nil {
		var shared bool
		payload, shared, err = c.flight.Do(fingerprint, execute)
		if shared {
			c.metrics.RecordCoalesced()
			c.logger.Debug("request coalesced",
				zap.String("requestID", requestID),
				zap.String("key", fingerprint))
		}
	} else {
		payload, err = execute()
	}

	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(method, path, statusOf(err), duration)
		return nil, err
	}
	c.metrics.RecordRequest(method, path, http.StatusOK, duration)

	if cacheable {
		c.cache.Set(fingerprint, payload)
		c.metrics.RecordCacheSize(c.cache.Stats().TotalSizeBytes)
	}

	return payload, nil
}

// attempt issues the HTTP call and loops on retryable outcomes. The caller
// already holds a concurrency slot; the rate-limit slot is claimed once,
// before the first attempt, and retries only sleep the classifier's delay.
func (c *Client) attempt(ctx context.Context, method, target string, body []byte, requestID string, download bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpClient := c.httpClient
	if download {
		httpClient = c.downloadClient
	}

	attempt := 0 // 5xx retries used so far
	for {
		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader(body))
		if err != nil {
			return nil, fmt.Errorf("gbif: building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			c.breaker.RecordFailure()
			c.metrics.RecordCircuitBreakerState(c.breaker.State())
			return nil, newNetworkError(err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			c.breaker.RecordFailure()
			c.metrics.RecordCircuitBreakerState(c.breaker.State())
			return nil, newNetworkError(readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.breaker.RecordSuccess()
			c.limiter.ResetBackoff()
			c.metrics.RecordCircuitBreakerState(c.breaker.State())
			return respBody, nil
		}

		// Every failed attempt counts toward the breaker threshold, not just
		// terminal outcomes: a flapping upstream trips the breaker faster.
		c.breaker.RecordFailure()
		c.metrics.RecordCircuitBreakerState(c.breaker.State())

		out := c.classify(resp.StatusCode, resp.Header, respBody, attempt)
		if !out.retry {
			c.logger.Warn("request failed",
				zap.String("requestID", requestID),
				zap.String("method", method),
				zap.Int("status", resp.StatusCode),
				zap.Error(out.err))
			return nil, out.err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			c.metrics.RecordBackoff()
		} else {
			attempt++
		}

		c.metrics.RecordRetry(method, req.URL.Path)
		c.logger.Info("scheduling retry",
			zap.String("requestID", requestID),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt),
			zap.Duration("delay", out.delay))

		if err := sleepContext(ctx, out.delay); err != nil {
			return nil, err
		}
	}
}

// buildURL joins the configured base URL with path and encodes params.
func (c *Client) buildURL(path string, params url.Values) string {
	target := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return target
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

// statusOf extracts the upstream status from a terminal error for metrics.
func statusOf(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
