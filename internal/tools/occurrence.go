package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// OccurrenceSearchInput selects occurrence records. All filters are optional.
type OccurrenceSearchInput struct {
	ScientificName string `json:"scientificName,omitempty" jsonschema:"scientific name to filter by, e.g. Puma concolor"`
	TaxonKey       int64  `json:"taxonKey,omitempty" jsonschema:"GBIF taxon key to filter by"`
	Country        string `json:"country,omitempty" jsonschema:"ISO 3166-1 alpha-2 country code, e.g. CR"`
	BasisOfRecord  string `json:"basisOfRecord,omitempty" jsonschema:"basis of record, e.g. PRESERVED_SPECIMEN or HUMAN_OBSERVATION"`
	Year           string `json:"year,omitempty" jsonschema:"year or year range, e.g. 1990 or 1990,2000"`
	DatasetKey     string `json:"datasetKey,omitempty" jsonschema:"UUID of the dataset to search within"`
	HasCoordinate  *bool  `json:"hasCoordinate,omitempty" jsonschema:"restrict to records with (true) or without (false) coordinates"`
	Limit          int    `json:"limit,omitempty" jsonschema:"page size, 1-300, default 20"`
	Offset         int    `json:"offset,omitempty" jsonschema:"number of records to skip"`
}

// OccurrenceSearch queries /occurrence/search.
func (s *Service) OccurrenceSearch(ctx context.Context, req *mcp.CallToolRequest, in OccurrenceSearchInput) (*mcp.CallToolResult, any, error) {
	if in.Limit < 0 || in.Limit > 300 {
		return s.fail(fmt.Errorf("limit must be between 0 and 300"))
	}
	if in.Offset < 0 {
		return s.fail(fmt.Errorf("offset must be non-negative"))
	}

	params := url.Values{}
	setIfPresent(params, "scientificName", in.ScientificName)
	setIfPresent(params, "country", in.Country)
	setIfPresent(params, "basisOfRecord", in.BasisOfRecord)
	setIfPresent(params, "year", in.Year)
	setIfPresent(params, "datasetKey", in.DatasetKey)
	if in.TaxonKey > 0 {
		params.Set("taxonKey", strconv.FormatInt(in.TaxonKey, 10))
	}
	if in.HasCoordinate != nil {
		params.Set("hasCoordinate", strconv.FormatBool(*in.HasCoordinate))
	}
	if in.Limit > 0 {
		params.Set("limit", strconv.Itoa(in.Limit))
	}
	if in.Offset > 0 {
		params.Set("offset", strconv.Itoa(in.Offset))
	}

	payload, err := s.client.Get(ctx, "/occurrence/search", params)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, params)
}

// OccurrenceGetInput identifies one occurrence record.
type OccurrenceGetInput struct {
	Key int64 `json:"key" jsonschema:"GBIF occurrence key"`
}

// OccurrenceGet fetches a single occurrence by key.
func (s *Service) OccurrenceGet(ctx context.Context, req *mcp.CallToolRequest, in OccurrenceGetInput) (*mcp.CallToolResult, any, error) {
	if in.Key <= 0 {
		return s.fail(fmt.Errorf("key must be a positive occurrence key"))
	}
	payload, err := s.client.Get(ctx, fmt.Sprintf("/occurrence/%d", in.Key), nil)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, nil)
}

// OccurrenceExportInput collects occurrence records across pages.
type OccurrenceExportInput struct {
	ScientificName string `json:"scientificName,omitempty" jsonschema:"scientific name to filter by"`
	TaxonKey       int64  `json:"taxonKey,omitempty" jsonschema:"GBIF taxon key to filter by"`
	Country        string `json:"country,omitempty" jsonschema:"ISO 3166-1 alpha-2 country code"`
	MaxRecords     int    `json:"maxRecords,omitempty" jsonschema:"stop after this many records, 1-1000, default 200"`
}

// OccurrenceExport walks /occurrence/search page by page until maxRecords
// results are collected or the result set ends.
func (s *Service) OccurrenceExport(ctx context.Context, req *mcp.CallToolRequest, in OccurrenceExportInput) (*mcp.CallToolResult, any, error) {
	maxRecords := in.MaxRecords
	if maxRecords <= 0 {
		maxRecords = 200
	}
	if maxRecords > 1000 {
		return s.fail(fmt.Errorf("maxRecords must not exceed 1000"))
	}

	params := url.Values{}
	setIfPresent(params, "scientificName", in.ScientificName)
	setIfPresent(params, "country", in.Country)
	if in.TaxonKey > 0 {
		params.Set("taxonKey", strconv.FormatInt(in.TaxonKey, 10))
	}

	var collected []json.RawMessage
	pager := s.client.Paginate("/occurrence/search", params, 100)
	for len(collected) < maxRecords {
		results, ok, err := pager.Next(ctx)
		if err != nil {
			return s.fail(err)
		}
		if !ok {
			break
		}
		collected = append(collected, results...)
	}
	if len(collected) > maxRecords {
		collected = collected[:maxRecords]
	}

	out := map[string]any{
		"recordCount": len(collected),
		"records":     collected,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return s.fail(fmt.Errorf("encoding export: %w", err))
	}
	return s.respond(payload, params)
}

func setIfPresent(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
