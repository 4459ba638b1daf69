// Package version holds build metadata injected via ldflags.
package version

// Set with -ldflags "-X github.com/eduroad/coursemap/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
