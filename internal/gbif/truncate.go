package gbif

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// reservedOverhead is subtracted from the item budget to cover the envelope
// wrapper and size strings, guaranteeing the final envelope stays under the
// configured limit.
const reservedOverhead = 2000

// Suggested page size bounds for the pagination hint.
const (
	minSuggestedPageSize = 10
	maxSuggestedPageSize = 50
)

// Envelope is returned in place of a payload that exceeded the byte budget.
// Callers distinguish truncated responses from normal ones by this shape.
type Envelope struct {
	Truncated    bool              `json:"truncated"`
	OriginalSize string            `json:"originalSize"`
	ReturnedSize string            `json:"returnedSize"`
	LimitSize    string            `json:"limitSize"`
	Message      string            `json:"message"`
	Metadata     *EnvelopeMetadata `json:"metadata,omitempty"`
	Data         json.RawMessage   `json:"data"`
	Pagination   *PaginationAdvice `json:"pagination,omitempty"`
}

// EnvelopeMetadata describes how much of a paginated result survived.
type EnvelopeMetadata struct {
	TotalCount    int64 `json:"totalCount"`
	ReturnedCount int   `json:"returnedCount"`
	Offset        int   `json:"offset"`
	Limit         int   `json:"limit"`
}

// PaginationAdvice suggests a follow-up query that fits the budget.
type PaginationAdvice struct {
	Suggestion string            `json:"suggestion"`
	Example    map[string]string `json:"example"`
}

// Truncator shrinks oversized payloads to fit a hard byte budget while
// keeping them useful. It never persists anything; each oversized response
// produces a fresh envelope.
type Truncator struct {
	maxBytes  int
	warnBytes int
	logger    *zap.Logger
	metrics   *MetricsCollector
}

// NewTruncator creates a truncator with a hard limit of maxBytes and a
// warning threshold of warnBytes. A nil logger disables diagnostics.
func NewTruncator(maxBytes, warnBytes int, logger *zap.Logger) *Truncator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Truncator{
		maxBytes:  maxBytes,
		warnBytes: warnBytes,
		logger:    logger,
	}
}

// SetMetrics attaches a collector; truncation events are counted on it.
func (t *Truncator) SetMetrics(m *MetricsCollector) {
	t.metrics = m
}

// Size returns the payload's byte size.
func (t *Truncator) Size(payload []byte) int {
	return len(payload)
}

// NeedsTruncation reports whether payload exceeds the byte budget.
func (t *Truncator) NeedsTruncation(payload []byte) bool {
	if len(payload) > t.warnBytes && len(payload) <= t.maxBytes {
		t.logger.Warn("response approaching size limit",
			zap.Int("size", len(payload)),
			zap.Int("limit", t.maxBytes))
	}
	return len(payload) > t.maxBytes
}

// Truncate shrinks an oversized payload, returning the envelope and true.
// A payload already within budget is left alone (nil, false). For paginated
// payloads whole leading result items are kept in original order; for
// non-paginated payloads no partial structure is salvageable and the
// envelope carries null data.
func (t *Truncator) Truncate(payload []byte, queryParams url.Values) (*Envelope, bool) {
	if len(payload) <= t.maxBytes {
		return nil, false
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return t.opaqueEnvelope(len(payload)), true
	}

	var results []json.RawMessage
	rawResults, paginated := doc["results"]
	if paginated {
		if err := json.Unmarshal(rawResults, &results); err != nil {
			paginated = false
		}
	}
	if !paginated {
		return t.opaqueEnvelope(len(payload)), true
	}
	if len(results) == 0 {
		// Nothing to trim out of an empty result set.
		return nil, false
	}

	base := t.baseSize(doc)
	budget := t.maxBytes - base - reservedOverhead

	kept := 0
	used := 0
	for _, item := range results {
		cost := len(item) + 1 // separator
		if used+cost > budget {
			break
		}
		used += cost
		kept++
	}

	doc["results"] = marshalItems(results[:kept])
	data, _ := json.Marshal(doc)

	// The non-results fields alone can outgrow the budget (large facet
	// blocks, say); trimming items cannot help then, so the payload is
	// treated as opaque to keep the envelope under the limit.
	if len(data)+reservedOverhead > t.maxBytes {
		return t.opaqueEnvelope(len(payload)), true
	}

	env := &Envelope{
		Truncated:    true,
		OriginalSize: humanize.Bytes(uint64(len(payload))),
		ReturnedSize: humanize.Bytes(uint64(len(data))),
		LimitSize:    humanize.Bytes(uint64(t.maxBytes)),
		Message: fmt.Sprintf("Response truncated from %s to fit the %s limit: returning %d of %d result items.",
			humanize.Bytes(uint64(len(payload))), humanize.Bytes(uint64(t.maxBytes)), kept, len(results)),
		Metadata: &EnvelopeMetadata{
			TotalCount:    intField(doc, "count"),
			ReturnedCount: kept,
			Offset:        int(intField(doc, "offset")),
			Limit:         int(intField(doc, "limit")),
		},
		Data:       data,
		Pagination: paginationAdvice(kept, queryParams),
	}

	t.metrics.RecordTruncation()
	t.logger.Info("response truncated",
		zap.Int("originalBytes", len(payload)),
		zap.Int("returnedBytes", len(data)),
		zap.Int("keptItems", kept),
		zap.Int("totalItems", len(results)))

	return env, true
}

// opaqueEnvelope covers oversized payloads that trimming result items
// cannot bring under the limit: nothing partial can be returned, so data
// is null and the caller must narrow the query.
func (t *Truncator) opaqueEnvelope(originalSize int) *Envelope {
	t.metrics.RecordTruncation()
	return &Envelope{
		Truncated:    true,
		OriginalSize: humanize.Bytes(uint64(originalSize)),
		ReturnedSize: humanize.Bytes(0),
		LimitSize:    humanize.Bytes(uint64(t.maxBytes)),
		Message: fmt.Sprintf("Response of %s exceeds the %s limit and cannot be reduced by trimming result items; re-query with narrower filters.",
			humanize.Bytes(uint64(originalSize)), humanize.Bytes(uint64(t.maxBytes))),
		Data: json.RawMessage("null"),
	}
}

// baseSize measures the payload with its results array emptied.
func (t *Truncator) baseSize(doc map[string]json.RawMessage) int {
	saved := doc["results"]
	doc["results"] = json.RawMessage("[]")
	encoded, _ := json.Marshal(doc)
	doc["results"] = saved
	return len(encoded)
}

func paginationAdvice(returnedCount int, queryParams url.Values) *PaginationAdvice {
	suggested := returnedCount
	if suggested < minSuggestedPageSize {
		suggested = minSuggestedPageSize
	}
	if suggested > maxSuggestedPageSize {
		suggested = maxSuggestedPageSize
	}

	example := make(map[string]string, len(queryParams)+2)
	for k, vs := range queryParams {
		if len(vs) > 0 {
			example[k] = strings.Join(vs, ",")
		}
	}
	example["limit"] = fmt.Sprintf("%d", suggested)
	example["offset"] = "0"

	return &PaginationAdvice{
		Suggestion: fmt.Sprintf("Use limit=%d and page with offset to retrieve the full result set in budget-sized chunks.", suggested),
		Example:    example,
	}
}

func marshalItems(items []json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(item)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func intField(doc map[string]json.RawMessage, key string) int64 {
	raw, ok := doc[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}
