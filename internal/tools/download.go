package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// DownloadRequestInput submits an asynchronous occurrence download.
// Requires GBIF credentials in the server configuration.
type DownloadRequestInput struct {
	Predicate json.RawMessage `json:"predicate" jsonschema:"GBIF download predicate as JSON, e.g. {\"type\":\"equals\",\"key\":\"TAXON_KEY\",\"value\":\"2435099\"}"`
	Format    string          `json:"format,omitempty" jsonschema:"archive format: SIMPLE_CSV (default) or DWCA"`
	Creator   string          `json:"creator,omitempty" jsonschema:"GBIF username recorded as the download creator"`
}

// DownloadRequest posts to /occurrence/download/request and returns the
// download key the upstream assigns.
func (s *Service) DownloadRequest(ctx context.Context, req *mcp.CallToolRequest, in DownloadRequestInput) (*mcp.CallToolResult, any, error) {
	if len(in.Predicate) == 0 {
		return s.fail(fmt.Errorf("predicate is required"))
	}
	format := in.Format
	if format == "" {
		format = "SIMPLE_CSV"
	}

	body := map[string]any{
		"format":    format,
		"predicate": in.Predicate,
	}
	if in.Creator != "" {
		body["creator"] = in.Creator
	}

	payload, err := s.client.Post(ctx, "/occurrence/download/request", body, nil)
	if err != nil {
		return s.fail(err)
	}

	// The endpoint answers with a bare download key, not a JSON document.
	key := strings.Trim(strings.TrimSpace(string(payload)), `"`)
	return textResult(fmt.Sprintf(`{"downloadKey":%q}`, key)), nil, nil
}

// DownloadStatusInput identifies a previously requested download.
type DownloadStatusInput struct {
	Key string `json:"key" jsonschema:"download key returned by occurrence_download_request"`
}

// DownloadStatus fetches /occurrence/download/{key}.
func (s *Service) DownloadStatus(ctx context.Context, req *mcp.CallToolRequest, in DownloadStatusInput) (*mcp.CallToolResult, any, error) {
	if in.Key == "" {
		return s.fail(fmt.Errorf("key is required"))
	}
	payload, err := s.client.Get(ctx, "/occurrence/download/"+in.Key, nil)
	if err != nil {
		return s.fail(err)
	}
	return s.respond(payload, nil)
}

// DownloadCancelInput identifies a download to cancel.
type DownloadCancelInput struct {
	Key string `json:"key" jsonschema:"download key to cancel"`
}

// DownloadCancel deletes /occurrence/download/request/{key}.
func (s *Service) DownloadCancel(ctx context.Context, req *mcp.CallToolRequest, in DownloadCancelInput) (*mcp.CallToolResult, any, error) {
	if in.Key == "" {
		return s.fail(fmt.Errorf("key is required"))
	}
	if err := s.client.Delete(ctx, "/occurrence/download/request/"+in.Key, nil); err != nil {
		return s.fail(err)
	}
	return textResult(fmt.Sprintf(`{"cancelled":%q}`, in.Key)), nil, nil
}

// DownloadFetchInput identifies a finished download archive to retrieve.
type DownloadFetchInput struct {
	Key string `json:"key" jsonschema:"download key whose archive should be fetched"`
}

// DownloadFetch resolves the archive link from the download's status record,
// retrieves it through the client's download path (doubled timeout, no
// cache) and writes it under the configured download directory.
func (s *Service) DownloadFetch(ctx context.Context, req *mcp.CallToolRequest, in DownloadFetchInput) (*mcp.CallToolResult, any, error) {
	if in.Key == "" {
		return s.fail(fmt.Errorf("key is required"))
	}

	statusPayload, err := s.client.Get(ctx, "/occurrence/download/"+in.Key, nil)
	if err != nil {
		return s.fail(err)
	}

	var status struct {
		Status       string `json:"status"`
		DownloadLink string `json:"downloadLink"`
	}
	if err := json.Unmarshal(statusPayload, &status); err != nil {
		return s.fail(fmt.Errorf("decoding download status: %w", err))
	}
	if status.Status != "SUCCEEDED" {
		return s.fail(fmt.Errorf("download %s is not ready (status %s)", in.Key, status.Status))
	}
	if status.DownloadLink == "" {
		return s.fail(fmt.Errorf("download %s has no archive link", in.Key))
	}

	archive, err := s.client.Download(ctx, status.DownloadLink)
	if err != nil {
		return s.fail(err)
	}

	path := filepath.Join(s.downloadDir, in.Key+".zip")
	if err := os.WriteFile(path, archive, 0o644); err != nil {
		return s.fail(fmt.Errorf("writing archive: %w", err))
	}

	s.logger.Info("download archive saved",
		zap.String("key", in.Key),
		zap.String("path", path),
		zap.Int("bytes", len(archive)))

	return textResult(fmt.Sprintf(`{"path":%q,"size":%q,"sizeBytes":%d}`,
		path, humanize.Bytes(uint64(len(archive))), len(archive))), nil, nil
}
