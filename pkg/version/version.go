// Package version holds the release version reported by the CLI.
package version

// Version is overridden at build time via
// -ldflags "-X github.com/kengine/migrate/pkg/version.Version=...".
var Version = "dev"
