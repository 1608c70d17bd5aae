package main

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// HostVariant selects the report layout and branding for the process lifetime.
type HostVariant string

const (
	VariantWindows     HostVariant = "windows"
	VariantLinux       HostVariant = "linux"
	VariantRaspberryPi HostVariant = "raspberry_pi"
)

func (v HostVariant) String() string { return string(v) }

// piBootMarkers are present on Raspberry Pi OS images; newer releases moved
// the file under /boot/firmware.
var piBootMarkers = []string{
	"/boot/config.txt",
	"/boot/firmware/config.txt",
}

const piArch = "armv7l"

func detectHostVariant() (HostVariant, error) {
	arch, err := host.KernelArch()
	if err != nil {
		arch = runtime.GOARCH
	}
	return classifyHost(runtime.GOOS, arch, fileExists)
}

func classifyHost(goos, arch string, exists func(string) bool) (HostVariant, error) {
	switch goos {
	case "windows":
		return VariantWindows, nil
	case "linux":
		if arch == piArch {
			return VariantRaspberryPi, nil
		}
		for _, marker := range piBootMarkers {
			if exists(marker) {
				return VariantRaspberryPi, nil
			}
		}
		return VariantLinux, nil
	default:
		return "", &UnsupportedHostError{OS: goos, Arch: arch}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
