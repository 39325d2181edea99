// Package version holds build information set through -ldflags, e.g.
//
//	go build -ldflags "-X objcache/internal/version.Version=v1.2.0 -X objcache/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line build description.
func Info() string {
	return fmt.Sprintf("objcache %s (commit %s, built %s)", Version, Commit, Date)
}
