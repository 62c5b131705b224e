// Package version carries build metadata stamped in by the linker.
package version

var (
	// Version is the analyzer release version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
