// Package gbif provides a protected client for the GBIF public API with
// composable reliability primitives:
//
//   - Circuit breaker (closed / open / half-open states)
//   - Sliding-window rate limiting with server-driven backoff (429, Retry-After)
//   - Bounded FIFO concurrency queue for outbound requests
//   - Byte-bounded in-memory response cache with TTL and LRU eviction
//   - Classification-driven retries with exponential backoff
//   - Coalescing of identical in-flight GET requests
//   - Response truncation keeping oversized paginated payloads within a byte budget
//   - Prometheus metrics and structured zap logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - One client instance per upstream target; no package-level state
//
// Typical usage:
//
//	client := gbif.New(
//	    gbif.WithRateLimit(60),
//	    gbif.WithMaxConcurrent(5),
//	    gbif.WithCache(50<<20, 10*time.Minute),
//	    gbif.WithRetry(3, time.Second),
//	)
//	payload, err := client.Get(ctx, "/occurrence/search", params)
//
// Terminal failures surface as *UpstreamError; a rejected call while the
// breaker is open surfaces as ErrCircuitOpen. Transient 429/5xx responses
// within the retry budget are absorbed internally and never reach the caller.
package gbif
