// Package version reports how the permrun binary was built.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/reglet-dev/permrun/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Full renders every field on one line.
func (i Info) Full() string {
	return fmt.Sprintf("%s (%s) built %s with %s for %s", i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
