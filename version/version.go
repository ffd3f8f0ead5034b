// Package version reports the build of the looper binaries.
package version

import (
	"runtime/debug"
	"strings"
)

// Version can be set at build time:
// go build -ldflags "-X github.com/vsariola/looper/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short vcs revision the binary was built from, with -dirty
// appended for modified trees.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	revision, modified := "", false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value[:min(7, len(setting.Value))]
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision != "" && modified {
		return revision + "-dirty"
	}
	return revision
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Hash != "" {
		return Hash
	}
	return "devel"
}()

// UserAgent names the program and its version, e.g. "looper-render/v1.2.0".
func UserAgent(program string) string {
	return strings.TrimSpace(program) + "/" + VersionOrHash
}
