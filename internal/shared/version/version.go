// Package version reports the build version of the service.
package version

import (
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// Set at build time with -ldflags "-X .../version.Version=v1.2.3 -X .../version.Commit=abc".
var (
	Version = "dev"
	Commit  = "unknown"
)

// Info is served by the health endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Release   bool   `json:"release"`
}

func Get() Info {
	v := Normalize(Version)
	return Info{
		Version:   v,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Release:   IsRelease(v),
	}
}

// Normalize ensures version string has "v" prefix for semver compatibility.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || version == "dev" {
		return version
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// IsRelease reports a valid semver without a prerelease suffix.
func IsRelease(version string) bool {
	v := Normalize(version)
	return semver.IsValid(v) && semver.Prerelease(v) == ""
}
