// Package build holds build-time information.
package build

// Build metadata. Defaults are overwritten by linker flags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
