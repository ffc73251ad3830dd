// Package version exposes build metadata for the wikidoc binary.
//
// The variables are set at build time:
//
//	go build -ldflags "-X github.com/jmylchreest/wikidoc/internal/version.Version=1.0.0 ..."
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	Dirty     = "false"
	BuildDate = "unknown"
)

// Info is the structured form printed by `wikidoc version --json`.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Dirty     bool   `json:"dirty" yaml:"dirty"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Dirty:     Dirty == "true",
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the version, suffixed with -dirty for modified trees.
func String() string {
	if Dirty == "true" {
		return Version + "-dirty"
	}
	return Version
}

// Full returns a multi-line description of the build.
func Full() string {
	info := Get()
	lines := []string{
		"wikidoc " + String(),
		fmt.Sprintf("  Commit:     %s", info.Commit),
		fmt.Sprintf("  Built:      %s", info.BuildDate),
		fmt.Sprintf("  Go version: %s", info.GoVersion),
		fmt.Sprintf("  OS/Arch:    %s", info.Platform),
	}
	return strings.Join(lines, "\n")
}
