package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register adds every GBIF tool to the MCP server. Input schemas are
// inferred from the handler input structs.
func Register(server *mcp.Server, s *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "occurrence_search",
		Description: "Search GBIF occurrence records with taxonomic, geographic and temporal filters.",
	}, s.OccurrenceSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "occurrence_get",
		Description: "Fetch a single GBIF occurrence record by its key.",
	}, s.OccurrenceGet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "occurrence_export",
		Description: "Collect occurrence records across result pages, up to a record cap.",
	}, s.OccurrenceExport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "species_match",
		Description: "Fuzzy-match a scientific name against the GBIF backbone taxonomy.",
	}, s.SpeciesMatch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "species_search",
		Description: "Full-text search over GBIF backbone taxa.",
	}, s.SpeciesSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "species_get",
		Description: "Fetch a single backbone taxon by its key.",
	}, s.SpeciesGet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dataset_search",
		Description: "Search the GBIF dataset registry.",
	}, s.DatasetSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dataset_get",
		Description: "Fetch a dataset's registry metadata by UUID.",
	}, s.DatasetGet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "occurrence_download_request",
		Description: "Submit an asynchronous GBIF occurrence download (requires configured credentials).",
	}, s.DownloadRequest)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "occurrence_download_status",
		Description: "Check the status of a GBIF occurrence download.",
	}, s.DownloadStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "occurrence_download_cancel",
		Description: "Cancel a running GBIF occurrence download.",
	}, s.DownloadCancel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "occurrence_download_fetch",
		Description: "Fetch a finished download archive and store it locally.",
	}, s.DownloadFetch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "client_status",
		Description: "Report the GBIF client's circuit breaker state and cache statistics.",
	}, s.ClientStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "client_reset",
		Description: "Clear the response cache and reset the circuit breaker.",
	}, s.ClientReset)
}
