package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DatasetSearchInput searches the GBIF dataset registry.
type DatasetSearchInput struct {
	Q                 string `json:"q,omitempty" jsonschema:"full-text search query"`
	Type              string `json:"type,omitempty" jsonschema:"dataset type, e.g. OCCURRENCE or CHECKLIST"`
	PublishingCountry string `json:"publishingCountry,omitempty" jsonschema:"ISO 3166-1 alpha-2 country code of the publisher"`
	Limit             int    `json:"limit,omitempty" jsonschema:"page size, 1-300, default 20"`
	Offset            int    `json:"offset,omitempty" jsonschema:"number of records to skip"`
}

// DatasetSearch queries /dataset/search.
func (s *Service) DatasetSearch(ctx context.Context, req *mcp.CallToolRequest, in DatasetSearchInput) (*mcp.CallToolResult, any, error) {
	if in.Limit < 0 || in.Limit > 300 {
		return s.fail(fmt.Errorf("limit must be between 0 and 300"))
	}

	params := url.Values{}
	setIfPresent(params, "q", in.Q)
	setIfPresent(params, "type", in.Type)
	setIfPresent(params, "publishingCountry", in.PublishingCountry)
	if in.Limit > 0 {
		params.Set("limit", strconv.Itoa(in.Limit))
	}
	if in.Offset > 0 {
		params.Set("offset", strconv.Itoa(in.Offset))
	}

	payload, err := s.client.Get(ctx, "/dataset/search", params)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, params)
}

// DatasetGetInput identifies one registered dataset.
type DatasetGetInput struct {
	UUID string `json:"uuid" jsonschema:"dataset UUID"`
}

// DatasetGet fetches a single dataset's registry metadata.
func (s *Service) DatasetGet(ctx context.Context, req *mcp.CallToolRequest, in DatasetGetInput) (*mcp.CallToolResult, any, error) {
	if _, err := uuid.Parse(in.UUID); err != nil {
		return s.fail(fmt.Errorf("uuid must be a valid dataset UUID"))
	}
	payload, err := s.client.Get(ctx, "/dataset/"+in.UUID, nil)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, nil)
}
