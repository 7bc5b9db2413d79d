//go:build windows

package osinfo

import "github.com/shirou/gopsutil/v4/host"

func kernelVersion() string {
	platform, _, version, err := host.PlatformInformation()
	if err != nil {
		return ""
	}
	if version == "" {
		return platform
	}
	return platform + " " + version
}
