// Package buildinfo exposes the version metadata stamped into the agent binary.
package buildinfo

import "runtime/debug"

var version = "dev"

// SetVersion allows build scripts to override the reported agent version.
func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

// Version returns the semantic version or commit hash associated with the build.
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// Commit returns the VCS revision the binary was built from, or empty when the
// build carries no VCS stamp (go test binaries, plain go build outside a repo).
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return ""
}
