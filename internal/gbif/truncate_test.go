package gbif

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"
)

// pagedPayload builds a GBIF-shaped search response with n result items,
// each roughly itemBytes in size.
func pagedPayload(t *testing.T, n, itemBytes int) []byte {
	t.Helper()
	items := make([]json.RawMessage, n)
	filler := strings.Repeat("x", itemBytes)
	for i := range items {
		items[i] = json.RawMessage(fmt.Sprintf(`{"key":%d,"scientificName":"Puma concolor","filler":%q}`, i, filler))
	}
	payload, err := json.Marshal(map[string]any{
		"offset":       0,
		"limit":        n,
		"endOfRecords": true,
		"count":        n,
		"results":      items,
	})
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestTruncateWithinBudgetUntouched(t *testing.T) {
	tr := NewTruncator(250<<10, 200<<10, nil)

	payload := pagedPayload(t, 10, 100)
	env, truncated := tr.Truncate(payload, nil)
	if truncated {
		t.Fatal("Expected payload within budget to pass through")
	}
	if env != nil {
		t.Errorf("Expected nil envelope, got %+v", env)
	}
}

func TestTruncatePaginatedPayload(t *testing.T) {
	tr := NewTruncator(250<<10, 200<<10, nil)

	payload := pagedPayload(t, 300, 1024)
	env, truncated := tr.Truncate(payload, url.Values{"scientificName": {"Puma concolor"}})
	if !truncated {
		t.Fatal("Expected 300KB+ payload truncated")
	}

	if !env.Truncated {
		t.Error("Expected Truncated flag set")
	}
	if env.Metadata == nil {
		t.Fatal("Expected metadata for paginated payload")
	}
	if env.Metadata.ReturnedCount >= 300 {
		t.Errorf("Expected fewer than 300 items kept, got %d", env.Metadata.ReturnedCount)
	}
	if env.Metadata.ReturnedCount == 0 {
		t.Error("Expected at least some items to fit the budget")
	}
	if env.Metadata.TotalCount != 300 {
		t.Errorf("Expected totalCount=300, got %d", env.Metadata.TotalCount)
	}

	encoded, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) > 250<<10 {
		t.Errorf("Expected final envelope within 250KB, got %d bytes", len(encoded))
	}

	// Kept items must be the leading items, in order.
	var data struct {
		Results []struct {
			Key int `json:"key"`
		} `json:"results"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	for i, item := range data.Results {
		if item.Key != i {
			t.Fatalf("Expected leading items in order, item %d has key %d", i, item.Key)
		}
	}
}

func TestTruncatePaginationAdvice(t *testing.T) {
	tr := NewTruncator(250<<10, 200<<10, nil)

	params := url.Values{"scientificName": {"Puma concolor"}, "country": {"CR"}}
	env, truncated := tr.Truncate(pagedPayload(t, 300, 1024), params)
	if !truncated {
		t.Fatal("Expected truncation")
	}
	if env.Pagination == nil {
		t.Fatal("Expected pagination advice")
	}

	limit := env.Pagination.Example["limit"]
	if limit == "" {
		t.Fatal("Expected example limit")
	}
	if env.Pagination.Example["offset"] != "0" {
		t.Errorf("Expected example offset=0, got %q", env.Pagination.Example["offset"])
	}
	if env.Pagination.Example["scientificName"] != "Puma concolor" {
		t.Error("Expected original query parameters carried into the example")
	}
}

func TestTruncateOversizedMetadataFallsBackToOpaque(t *testing.T) {
	maxBytes := 250 << 10
	tr := NewTruncator(maxBytes, 200<<10, nil)

	// The bulk lives outside results (a fat facets block); trimming items
	// cannot bring the document under the limit.
	payload, err := json.Marshal(map[string]any{
		"offset":       0,
		"limit":        3,
		"endOfRecords": true,
		"count":        3,
		"facets":       strings.Repeat("f", 300<<10),
		"results": []json.RawMessage{
			json.RawMessage(`{"key":0}`),
			json.RawMessage(`{"key":1}`),
			json.RawMessage(`{"key":2}`),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	env, truncated := tr.Truncate(payload, nil)
	if !truncated {
		t.Fatal("Expected oversized payload truncated")
	}
	if string(env.Data) != "null" {
		t.Errorf("Expected null data when items cannot be trimmed under budget, got %d bytes", len(env.Data))
	}

	encoded, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) > maxBytes {
		t.Errorf("Expected envelope within %d bytes, got %d", maxBytes, len(encoded))
	}
}

func TestTruncateAdviceKeepsMultiValuedParams(t *testing.T) {
	params := url.Values{}
	params.Add("basisOfRecord", "PRESERVED_SPECIMEN")
	params.Add("basisOfRecord", "HUMAN_OBSERVATION")

	adv := paginationAdvice(20, params)
	if got := adv.Example["basisOfRecord"]; got != "PRESERVED_SPECIMEN,HUMAN_OBSERVATION" {
		t.Errorf("Expected all values carried into the example, got %q", got)
	}
}

func TestTruncateAdviceClampsPageSize(t *testing.T) {
	adv := paginationAdvice(3, nil)
	if adv.Example["limit"] != "10" {
		t.Errorf("Expected floor of 10, got %s", adv.Example["limit"])
	}

	adv = paginationAdvice(200, nil)
	if adv.Example["limit"] != "50" {
		t.Errorf("Expected ceiling of 50, got %s", adv.Example["limit"])
	}

	adv = paginationAdvice(25, nil)
	if adv.Example["limit"] != "25" {
		t.Errorf("Expected suggestion to match kept count, got %s", adv.Example["limit"])
	}
}

func TestTruncateEmptyResultsNeverTruncated(t *testing.T) {
	tr := NewTruncator(10, 8, nil)

	payload := []byte(`{"offset":0,"limit":20,"count":0,"endOfRecords":true,"results":[]}`)
	env, truncated := tr.Truncate(payload, nil)
	if truncated {
		t.Errorf("Expected empty result set untouched regardless of budget, got %+v", env)
	}
}

func TestTruncateNonPaginatedPayload(t *testing.T) {
	tr := NewTruncator(100, 80, nil)

	payload, _ := json.Marshal(map[string]string{
		"description": strings.Repeat("a", 500),
	})
	env, truncated := tr.Truncate(payload, nil)
	if !truncated {
		t.Fatal("Expected oversized non-paginated payload truncated")
	}
	if env.Metadata != nil {
		t.Error("Expected no metadata for non-paginated payload")
	}
	if string(env.Data) != "null" {
		t.Errorf("Expected null data, got %s", env.Data)
	}
	if env.Pagination != nil {
		t.Error("Expected no pagination advice for non-paginated payload")
	}
}

func TestTruncateNonJSONPayload(t *testing.T) {
	tr := NewTruncator(10, 8, nil)

	env, truncated := tr.Truncate([]byte(strings.Repeat("z", 100)), nil)
	if !truncated {
		t.Fatal("Expected oversized opaque payload truncated")
	}
	if string(env.Data) != "null" {
		t.Errorf("Expected null data, got %s", env.Data)
	}
}

func TestNeedsTruncation(t *testing.T) {
	tr := NewTruncator(100, 80, nil)

	if tr.NeedsTruncation(make([]byte, 50)) {
		t.Error("Expected 50 bytes under budget")
	}
	if tr.NeedsTruncation(make([]byte, 90)) {
		t.Error("Expected 90 bytes under hard budget despite warn threshold")
	}
	if !tr.NeedsTruncation(make([]byte, 101)) {
		t.Error("Expected 101 bytes over budget")
	}
}
