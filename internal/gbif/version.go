package gbif

import "fmt"

// DefaultBaseURL is the public GBIF API root.
const DefaultBaseURL = "https://api.gbif.org/v1"

var (
	// Version is the application semantic version (inject via -ldflags).
	Version = "0.1.0"
	// GitCommit is the git SHA (inject via -ldflags).
	GitCommit = "unknown"
)

// UserAgent returns the User-Agent string sent with every request.
func UserAgent() string {
	return fmt.Sprintf("gbifmcp/%s (+https://github.com/taksalab/gbifmcp)", Version)
}
