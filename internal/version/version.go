// Package version reports the build information stamped into the binaries.
//
// The values are set at build time with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/version.version=v1.2.0"
package version

import "runtime/debug"

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

// Get returns the build info, falling back to the VCS data embedded by the go tool
// when the binary was built without ldflags.
func Get() Info {
	info := Info{Version: version, BuildDate: buildDate, GitCommit: gitCommit}
	if info.GitCommit != "unknown" {
		return info
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = s.Value
		case "vcs.time":
			info.BuildDate = s.Value
		}
	}
	return info
}
