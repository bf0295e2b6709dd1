// Package version records build metadata injected at link time.
package version

// Populated via -ldflags at release builds; defaults identify local builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
