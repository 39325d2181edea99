// Package integration provides integration tests that exercise export stores
// against real backing services started with testcontainers.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration
