// Package contracts holds the version identity shared by the TrawlScope
// server, the CLI processor and the dashboard clients.
package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the application release.
	Version = "0.3.1"

	// DataFormatVersion tracks the cleaned snapshot column layout. Bump it
	// when the snapshot schema changes incompatibly.
	DataFormatVersion = "v1"

	// APIVersion covers the HTTP endpoints and WebSocket message shapes.
	APIVersion = "v1"
)

// Stamped at build time via -ldflags "-X trawlscope/pkg/contracts.BuildTime=... ".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GetFullVersionString renders the one-line version banner the CLI prints
// for -version.
func GetFullVersionString() string {
	return fmt.Sprintf("TrawlScope v%s (built: %s, commit: %s, go: %s, os: %s/%s)",
		Version, BuildTime, GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
