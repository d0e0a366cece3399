package gbif

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the client's request
// lifecycle and reliability layers. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	retriesTotal *prometheus.CounterVec

	circuitBreakerState prometheus.Gauge

	rateLimiterBackoffs prometheus.Counter

	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheSizeBytes prometheus.Gauge

	coalescedRequests prometheus.Counter

	truncationsTotal prometheus.Counter
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer (useful for tests and multi-client processes).
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gbif_requests_total",
				Help: "Total number of GBIF API requests made",
			},
			[]string{"method", "path", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gbif_request_duration_seconds",
				Help:    "Duration of GBIF API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		requestsInFlight: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "gbif_requests_in_flight",
				Help: "Number of outbound requests currently admitted",
			},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gbif_retries_total",
				Help: "Total retry attempts by path",
			},
			[]string{"method", "path"},
		),
		circuitBreakerState: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "gbif_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
		rateLimiterBackoffs: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "gbif_rate_limiter_backoffs_total",
				Help: "Number of 429-driven cooldowns imposed by the rate limiter",
			},
		),
		cacheHits: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "gbif_cache_hits_total",
				Help: "Response cache hits",
			},
		),
		cacheMisses: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "gbif_cache_misses_total",
				Help: "Response cache misses",
			},
		),
		cacheSizeBytes: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "gbif_cache_size_bytes",
				Help: "Resident byte size of the response cache",
			},
		),
		coalescedRequests: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "gbif_coalesced_requests_total",
				Help: "GET requests served by sharing another caller's in-flight round trip",
			},
		),
		truncationsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "gbif_truncations_total",
				Help: "Responses truncated to fit the byte budget",
			},
		),
	}
}

// RecordRequest records a completed request with its final status and duration.
func (m *MetricsCollector) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (m *MetricsCollector) RecordRequestStart() {
	if m == nil {
		return
	}
	m.requestsInFlight.Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (m *MetricsCollector) RecordRequestEnd() {
	if m == nil {
		return
	}
	m.requestsInFlight.Dec()
}

// RecordRetry records a scheduled retry.
func (m *MetricsCollector) RecordRetry(method, path string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(method, path).Inc()
}

// RecordCircuitBreakerState records the breaker's current state.
func (m *MetricsCollector) RecordCircuitBreakerState(state CircuitState) {
	if m == nil {
		return
	}
	m.circuitBreakerState.Set(float64(state))
}

// RecordBackoff counts a 429-driven cooldown.
func (m *MetricsCollector) RecordBackoff() {
	if m == nil {
		return
	}
	m.rateLimiterBackoffs.Inc()
}

// RecordCacheHit counts a cache hit.
func (m *MetricsCollector) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss counts a cache miss.
func (m *MetricsCollector) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// RecordCacheSize records the cache's resident byte size.
func (m *MetricsCollector) RecordCacheSize(bytes int64) {
	if m == nil {
		return
	}
	m.cacheSizeBytes.Set(float64(bytes))
}

// RecordCoalesced counts a GET served from a shared in-flight round trip.
func (m *MetricsCollector) RecordCoalesced() {
	if m == nil {
		return
	}
	m.coalescedRequests.Inc()
}

// RecordTruncation counts a truncated response.
func (m *MetricsCollector) RecordTruncation() {
	if m == nil {
		return
	}
	m.truncationsTotal.Inc()
}
