package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionFile string

// Build-time variables set via ldflags
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// planFormat is bumped whenever the JSON plan layout changes incompatibly.
const planFormat = "1"

// App returns the current version of pgmerge
func App() string {
	return strings.TrimSpace(versionFile)
}

// PlanFormat returns the version of the JSON plan format
func PlanFormat() string {
	return planFormat
}

// Platform returns the OS/architecture combination
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// String returns the full version line, e.g. "pgmerge v0.1.0@abc123 linux/amd64 2025-01-01".
func String() string {
	return "pgmerge v" + App() + "@" + GitCommit + " " + Platform() + " " + BuildDate
}
