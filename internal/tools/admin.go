package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusInput has no parameters.
type StatusInput struct{}

// ClientStatus reports the circuit breaker state and cache statistics.
func (s *Service) ClientStatus(ctx context.Context, req *mcp.CallToolRequest, in StatusInput) (*mcp.CallToolResult, any, error) {
	out := map[string]any{
		"circuitState": s.client.CircuitState(),
		"cache":        s.client.CacheStats(),
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return s.fail(fmt.Errorf("encoding status: %w", err))
	}
	return textResult(string(payload)), nil, nil
}

// ResetInput has no parameters.
type ResetInput struct{}

// ClientReset clears the response cache and resets the circuit breaker.
func (s *Service) ClientReset(ctx context.Context, req *mcp.CallToolRequest, in ResetInput) (*mcp.CallToolResult, any, error) {
	s.client.Reset()
	return textResult(`{"reset":true}`), nil, nil
}
