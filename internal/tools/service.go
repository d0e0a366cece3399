// Package tools exposes the GBIF client to MCP callers. Each tool is thin:
// validate parameters, build a query, pass through the protected client,
// then shape the response (truncating oversized payloads) into tool output.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/taksalab/gbifmcp/internal/gbif"
)

// Service carries the shared collaborators every tool handler uses.
type Service struct {
	client      *gbif.Client
	truncator   *gbif.Truncator
	truncation  bool
	downloadDir string
	logger      *zap.Logger
}

// NewService creates the tool service around a configured client.
func NewService(client *gbif.Client, truncator *gbif.Truncator, truncation bool, downloadDir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:      client,
		truncator:   truncator,
		truncation:  truncation,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// respond shapes a successful payload into a tool result, applying the
// truncator when the payload exceeds the byte budget.
func (s *Service) respond(payload json.RawMessage, params url.Values) (*mcp.CallToolResult, any, error) {
	if s.truncation && s.truncator != nil {
		if env, truncated := s.truncator.Truncate(payload, params); truncated {
			encoded, err := json.Marshal(env)
			if err != nil {
				return s.fail(fmt.Errorf("encoding truncation envelope: %w", err))
			}
			return textResult(string(encoded)), nil, nil
		}
	}
	return textResult(string(payload)), nil, nil
}

// fail translates an error into user-facing tool output. Tool execution
// failures are reported through IsError, not a Go error: a Go error would
// signal protocol-level breakage to the MCP host.
func (s *Service) fail(err error) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: userMessage(err)}},
		IsError: true,
	}, nil, nil
}

// userMessage maps client errors to status-specific guidance.
func userMessage(err error) string {
	if errors.Is(err, gbif.ErrCircuitOpen) {
		return "The GBIF service is temporarily degraded and requests are paused. Retry shortly."
	}

	var ue *gbif.UpstreamError
	if errors.As(err, &ue) {
		switch ue.Code {
		case gbif.CodeBadRequest:
			return fmt.Sprintf("GBIF rejected the query (%s). Check the parameters and try again.", ue.Message)
		case gbif.CodeNotFound:
			return "No matching record was found in GBIF."
		case gbif.CodeRateLimited:
			return "GBIF is rate limiting requests. Wait a moment and try again."
		case gbif.CodeUpstream:
			return fmt.Sprintf("GBIF is currently unavailable (%s). Try again later.", ue.Message)
		case gbif.CodeNetwork:
			return "Could not reach GBIF. Check connectivity and try again."
		}
	}
	return fmt.Sprintf("Request failed: %v", err)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
