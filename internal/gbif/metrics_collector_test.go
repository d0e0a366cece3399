package gbif

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsCollectorRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetricsCollectorWithRegistry(registry)

	m.RecordRequestStart()
	m.RecordRequest(http.MethodGet, "/occurrence/search", 200, 50*time.Millisecond)
	m.RecordRetry(http.MethodGet, "/occurrence/search")
	m.RecordCircuitBreakerState(StateHalfOpen)
	m.RecordBackoff()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheSize(1024)
	m.RecordCoalesced()
	m.RecordTruncation()
	m.RecordRequestEnd()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	seen := make(map[string]bool, len(families))
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{
		"gbif_requests_total",
		"gbif_request_duration_seconds",
		"gbif_retries_total",
		"gbif_circuit_breaker_state",
		"gbif_rate_limiter_backoffs_total",
		"gbif_cache_hits_total",
		"gbif_cache_misses_total",
		"gbif_cache_size_bytes",
		"gbif_coalesced_requests_total",
		"gbif_truncations_total",
	} {
		if !seen[name] {
			t.Errorf("Expected metric family %s", name)
		}
	}
}

func TestMetricsCollectorNilSafe(t *testing.T) {
	var m *MetricsCollector

	// A client without metrics uses a nil collector; every method must be
	// callable on it.
	m.RecordRequestStart()
	m.RecordRequest(http.MethodGet, "/species/1", 200, time.Millisecond)
	m.RecordRetry(http.MethodGet, "/species/1")
	m.RecordCircuitBreakerState(StateClosed)
	m.RecordBackoff()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheSize(0)
	m.RecordCoalesced()
	m.RecordTruncation()
	m.RecordRequestEnd()
}
