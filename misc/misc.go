// Package misc holds build-time identity: the program name and the version
// stamp linked in via -ldflags, consumed by config and the CLI banner.
package misc

// appName is the process name used to derive default file names (logs,
// panic captures, debug reports) and the zap logger's root name.
const appName = "domcast"

var (
	// version and githash are overwritten at build time with:
	//   -ldflags "-X domcast/misc.version=... -X domcast/misc.githash=..."
	version = "dev"
	githash = "unknown"
)

// GetAppName returns the process name.
func GetAppName() string {
	return appName
}

// GetVersion returns the build version, or "dev" when built without
// version injection.
func GetVersion() string {
	return version
}

// GetGitHash returns the short commit hash the binary was built from, or
// "unknown" when built without injection.
func GetGitHash() string {
	return githash
}
