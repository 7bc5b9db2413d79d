// Package osinfo resolves a human readable operating system identity
// (distribution name and release) for display on the status page.
package osinfo

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"status-image/src/internal/shell"
)

const unknown = "unknown"

// releaseCommand concatenates the candidate release files. Missing files are
// silenced but still make cat exit non-zero.
const releaseCommand = "cat /etc/*-release 2>/dev/null; cat /usr/lib/os-release 2>/dev/null; cat /etc/openwrt_release 2>/dev/null"

// Identity is the resolved OS identity. Release is empty when the platform
// has no notion of a distribution release.
type Identity struct {
	Platform string `json:"platform"`
	Distro   string `json:"distro"`
	Release  string `json:"release,omitempty"`
}

// String formats the identity the way the status page shows it.
func (i Identity) String() string {
	if i.Release != "" {
		return i.Distro + " " + i.Release
	}
	return i.Distro
}

// Resolver determines the Identity of the host.
type Resolver struct {
	// Platform is a GOOS value.
	Platform string
	// Run executes the release file command.
	Run shell.Runner
	// KernelVersion reports the opaque kernel version string.
	KernelVersion func() string
}

// NewResolver returns a Resolver for the running host.
func NewResolver() *Resolver {
	return &Resolver{
		Platform:      runtime.GOOS,
		Run:           shell.Execute,
		KernelVersion: kernelVersion,
	}
}

// Resolve never fails: missing or malformed data degrades to "unknown".
func (r *Resolver) Resolve(ctx context.Context) Identity {
	switch r.Platform {
	case "windows":
		return Identity{Platform: "Windows", Distro: r.kernel()}
	case "linux", "android":
		res, err := r.Run(ctx, releaseCommand)
		if err != nil {
			// cat exits non-zero whenever one of the files is missing, so the
			// partial output is still the best answer available.
			slog.Debug("release file command failed", "exit_code", res.ExitCode, "error", err)
		}
		return IdentityFromRelease(r.Platform, ParseRelease(res.Stdout))
	default:
		return Identity{Platform: r.Platform, Distro: r.kernel()}
	}
}

// ResolveAsync runs Resolve in the background. The channel receives exactly
// one value and is then closed.
func (r *Resolver) ResolveAsync(ctx context.Context) <-chan Identity {
	ch := make(chan Identity, 1)
	go func() {
		defer close(ch)
		ch <- r.Resolve(ctx)
	}()
	return ch
}

func (r *Resolver) kernel() string {
	if r.KernelVersion == nil {
		return unknown
	}
	if v := strings.TrimSpace(r.KernelVersion()); v != "" {
		return v
	}
	return unknown
}
