package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SpeciesMatchInput fuzzy-matches a name against the GBIF backbone taxonomy.
type SpeciesMatchInput struct {
	Name    string `json:"name" jsonschema:"scientific name to match, e.g. Felis concolor"`
	Kingdom string `json:"kingdom,omitempty" jsonschema:"kingdom to disambiguate homonyms, e.g. Animalia"`
	Rank    string `json:"rank,omitempty" jsonschema:"expected rank, e.g. SPECIES"`
	Strict  bool   `json:"strict,omitempty" jsonschema:"when true, never match a higher rank on failure"`
}

// SpeciesMatch queries /species/match.
func (s *Service) SpeciesMatch(ctx context.Context, req *mcp.CallToolRequest, in SpeciesMatchInput) (*mcp.CallToolResult, any, error) {
	if in.Name == "" {
		return s.fail(fmt.Errorf("name is required"))
	}

	params := url.Values{}
	params.Set("name", in.Name)
	setIfPresent(params, "kingdom", in.Kingdom)
	setIfPresent(params, "rank", in.Rank)
	if in.Strict {
		params.Set("strict", "true")
	}

	payload, err := s.client.Get(ctx, "/species/match", params)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, params)
}

// SpeciesSearchInput performs a full-text search over backbone taxa.
type SpeciesSearchInput struct {
	Q              string `json:"q" jsonschema:"full-text search query"`
	Rank           string `json:"rank,omitempty" jsonschema:"taxonomic rank filter, e.g. FAMILY"`
	HigherTaxonKey int64  `json:"higherTaxonKey,omitempty" jsonschema:"restrict to descendants of this taxon key"`
	Status         string `json:"status,omitempty" jsonschema:"taxonomic status filter, e.g. ACCEPTED"`
	Limit          int    `json:"limit,omitempty" jsonschema:"page size, 1-300, default 20"`
	Offset         int    `json:"offset,omitempty" jsonschema:"number of records to skip"`
}

// SpeciesSearch queries /species/search.
func (s *Service) SpeciesSearch(ctx context.Context, req *mcp.CallToolRequest, in SpeciesSearchInput) (*mcp.CallToolResult, any, error) {
	if in.Q == "" {
		return s.fail(fmt.Errorf("q is required"))
	}
	if in.Limit < 0 || in.Limit > 300 {
		return s.fail(fmt.Errorf("limit must be between 0 and 300"))
	}

	params := url.Values{}
	params.Set("q", in.Q)
	setIfPresent(params, "rank", in.Rank)
	setIfPresent(params, "status", in.Status)
	if in.HigherTaxonKey > 0 {
		params.Set("highertaxonKey", strconv.FormatInt(in.HigherTaxonKey, 10))
	}
	if in.Limit > 0 {
		params.Set("limit", strconv.Itoa(in.Limit))
	}
	if in.Offset > 0 {
		params.Set("offset", strconv.Itoa(in.Offset))
	}

	payload, err := s.client.Get(ctx, "/species/search", params)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, params)
}

// SpeciesGetInput identifies one backbone taxon.
type SpeciesGetInput struct {
	Key int64 `json:"key" jsonschema:"GBIF taxon key"`
}

// SpeciesGet fetches a single taxon by key.
func (s *Service) SpeciesGet(ctx context.Context, req *mcp.CallToolRequest, in SpeciesGetInput) (*mcp.CallToolResult, any, error) {
	if in.Key <= 0 {
		return s.fail(fmt.Errorf("key must be a positive taxon key"))
	}
	payload, err := s.client.Get(ctx, fmt.Sprintf("/species/%d", in.Key), nil)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, nil)
}
