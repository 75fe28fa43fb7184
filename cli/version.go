package cli

import "runtime/debug"

// version is set by the linker with -X github.com/brimdata/zml/cli.version=...
var version string

// Version returns the linker-set version if there is one, the main module
// version from the build information otherwise ("(devel)" outside of
// "go install PACKAGE@VERSION"), or "unknown".
func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "unknown"
}
