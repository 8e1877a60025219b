// Package version exposes build metadata injected at link time.
package version

// Populated via -ldflags at build time.
var (
	// Version is the release version, e.g. "v0.3.0".
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)
