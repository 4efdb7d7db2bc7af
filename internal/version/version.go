// Package version reports the build version of sigilid.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Build metadata, set with -ldflags "-X".
//
//nolint:gochecknoglobals // Set by the linker at build time
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build info. When no version was linked in, the module
// version and VCS revision recorded by the go tool are used.
func Get() Info {
	info := Info{
		Version:   NormalizeVersion(Version),
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = NormalizeVersion(bi.Main.Version)
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// String formats the info on one line.
func (i Info) String() string {
	s := "sigilid " + i.Version
	if i.Commit != "" {
		s += " (" + shortCommit(i.Commit) + ")"
	}
	return fmt.Sprintf("%s %s %s", s, i.GoVersion, i.Platform)
}

// NormalizeVersion removes the 'v' prefix, surrounding whitespace and any
// pre-release or build metadata suffix (e.g. -rc1, -dirty, +build).
func NormalizeVersion(version string) string {
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}
	for {
		trimmed := strings.TrimLeft(strings.TrimSpace(version), "v")
		if trimmed == version {
			break
		}
		version = trimmed
	}
	if version == "" {
		return "dev"
	}
	return version
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
