// Package misc holds build metadata helpers.
package misc

import "runtime/debug"

const appName = "critcss"

// version is set at build time with -ldflags "-X critcss/misc.version=...".
var version = "dev"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns the VCS revision recorded in build info, if any.
func GetGitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
