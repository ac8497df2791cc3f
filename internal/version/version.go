// Package version carries the build identity stamped by the linker.
package version

import "fmt"

// Stamped at build time:
//
//	go build -ldflags "-X github.com/agusgarcia3007/bun-logs/internal/version.Version=v1.2.0"
//
// Unstamped binaries identify themselves as a dev build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String renders the full build identity, as shown by --version.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

// Short is the bare version tag, compact enough for a User-Agent.
func Short() string {
	return Version
}
