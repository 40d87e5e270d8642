package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name reported by the version endpoints.
const Name = "ucmd"

// Build metadata, set via ldflags:
//
//	-X github.com/smazurov/ucmd/internal/version.Version=v0.3.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	BuildID   = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns version and build information. A binary built without
// ldflags falls back to the VCS revision recorded by the go tool.
func Get() Info {
	info := Info{
		Name:      Name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = shortRevision(s.Value)
			case "vcs.time":
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// String returns "ucmd <version> (<commit>)".
func String() string {
	info := Get()
	return fmt.Sprintf("%s %s (%s)", info.Name, info.Version, info.GitCommit)
}
