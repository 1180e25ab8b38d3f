// Package version exposes the build metadata stamped into the binary.
package version

// Injected via -ldflags "-X ..." at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata as a single field for startup logs.
func String() string {
	return Version + " (" + Commit + ", built " + Date + ")"
}
