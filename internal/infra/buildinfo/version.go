package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	vcsOnce sync.Once
	vcs     struct {
		revision string
		time     string
		modified bool
	}
)

func readVCS() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			vcs.revision = s.Value
		case "vcs.time":
			vcs.time = s.Value
		case "vcs.modified":
			vcs.modified = s.Value == "true"
		}
	}
}

// Get returns the build information. Commit and BuildTime fall back to the
// VCS stamp of the binary when not set with ldflags.
func Get() Info {
	vcsOnce.Do(readVCS)

	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Modified:  vcs.modified,
	}
	if info.Commit == "unknown" && vcs.revision != "" {
		info.Commit = shortRevision(vcs.revision)
	}
	if info.BuildTime == "unknown" && vcs.time != "" {
		info.BuildTime = vcs.time
	}
	return info
}

// String returns a formatted version string.
func String() string {
	info := Get()
	s := info.Version + " (" + info.Commit
	if info.Modified {
		s += "-dirty"
	}
	return s + ") built at " + info.BuildTime + " with " + info.GoVersion
}

// UserAgent returns the User-Agent header value for a TradeGate client.
func UserAgent(program string) string {
	return program + "/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
