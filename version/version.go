// Package version exposes the build identity of the module. [Short] is
// stamped into every indexed document as its index_version, so a dump
// identifies the writer that produced it.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release version, set via ldflags.
	Version string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string

	// Revision is the git commit revision.
	Revision = getRevision()
	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)

// Short returns the release version, falling back to the VCS revision
// for untagged builds.
func Short() string {
	if Version != "" {
		return Version
	}
	if Revision != "unknown" {
		if len(Revision) > 12 {
			return Revision[:12]
		}

		return Revision
	}

	return "dev"
}

// Long returns the full build description for the version command.
func Long() string {
	s := fmt.Sprintf("%s (revision %s, %s, %s/%s)",
		Short(), Revision, GoVersion, runtime.GOOS, runtime.GOARCH)
	if BuildDate != "" {
		s += ", built " + BuildDate
	}

	return s
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			if v.Value == "true" {
				modified = true
			}
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
