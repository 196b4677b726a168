// Package buildinfo carries version metadata stamped in at link time.
package buildinfo

import "fmt"

// Set via -ldflags "-X github.com/drcash-dev/drcash/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the version line shown by --version.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
