// Package system reports facts about the running binary.
package system

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set at build time with -ldflags "-X status-image/src/internal/system.Version=...".
var Version = ""

// AppVersion returns the build version, falling back to the module version
// recorded by the Go toolchain and then to "dev".
func AppVersion() string {
	if Version != "" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}

// Describe summarizes the binary for startup logs and --version.
func Describe() string {
	return fmt.Sprintf("%s (%s/%s, %s)", AppVersion(), runtime.GOOS, runtime.GOARCH, runtime.Version())
}
