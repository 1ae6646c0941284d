package version

import "fmt"

// Set via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// UserAgent identifies paperalchemy to model providers.
func UserAgent() string {
	return "paperalchemy/" + Version
}
