package gbif

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Option represents a configuration option for New.
type Option func(*Client)

// WithBaseURL overrides the API root (primarily for tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the per-attempt HTTP timeout. Downloads use twice this.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithBasicAuth sets credentials sent with every request; the GBIF download
// API requires them.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRetry sets the 5xx retry budget and the base delay of the exponential
// schedule (delay * 2^attempt).
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// WithMaxRetryDelay caps the exponential retry delay.
func WithMaxRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxRetryDelay = d
	}
}

// WithRetryJitter adds a random fraction (0.0 to 1.0) on top of computed
// retry delays.
func WithRetryJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.retryJitter = f
	}
}

// WithRateLimit sets the per-minute request ceiling.
func WithRateLimit(maxPerMinute int) Option {
	return func(c *Client) {
		c.limiter = NewRateLimiter(maxPerMinute)
	}
}

// WithMaxConcurrent bounds the number of in-flight outbound requests.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		c.queue = NewQueue(n)
	}
}

// WithCache sets the response cache's byte budget and entry TTL.
func WithCache(maxBytes int64, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewCache(maxBytes, ttl)
	}
}

// WithoutCache disables response caching entirely.
func WithoutCache() Option {
	return func(c *Client) {
		c.cache = nil
	}
}

// WithoutCoalescing disables sharing of identical in-flight GETs.
func WithoutCoalescing() Option {
	return func(c *Client) {
		c.flight = nil
	}
}

// WithCircuitBreaker sets the circuit breaker configuration.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breaker = NewCircuitBreaker(config)
	}
}

// WithLogger sets the structured logging sink. The client never buffers or
// persists log output itself.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
// attached to log events.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// validateConfiguration checks numeric thresholds at construction time.
func (c *Client) validateConfiguration() error {
	var problems []string

	if strings.TrimSpace(c.baseURL) == "" {
		problems = append(problems, "baseURL must not be empty")
	}
	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.retryAttempts < 0 {
		problems = append(problems, "retryAttempts must be non-negative")
	}
	if c.retryDelay <= 0 {
		problems = append(problems, "retryDelay must be positive")
	}
	if c.maxRetryDelay < c.retryDelay {
		problems = append(problems, "maxRetryDelay must be at least retryDelay")
	}
	if c.limiter != nil && c.limiter.maxPerWindow <= 0 {
		problems = append(problems, "rate limit must be positive")
	}
	if c.queue != nil && c.queue.Capacity() <= 0 {
		problems = append(problems, "maxConcurrent must be positive")
	}
	if c.cache != nil && c.cache.ttl <= 0 {
		problems = append(problems, "cache TTL must be positive when caching is enabled")
	}
	if c.cache != nil && c.cache.maxBytes <= 0 {
		problems = append(problems, "cache byte budget must be positive when caching is enabled")
	}
	if c.username == "" && c.password != "" {
		problems = append(problems, "basic auth password set without username")
	}

	if len(problems) > 0 {
		return fmt.Errorf("gbif: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
