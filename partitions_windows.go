//go:build windows

package main

import (
	"strings"

	"golang.org/x/sys/windows"
)

func isFixedDrive(mountpoint string) bool {
	root, err := windows.UTF16PtrFromString(driveRoot(mountpoint))
	if err != nil {
		return false
	}
	return windows.GetDriveType(root) == windows.DRIVE_FIXED
}

// driveRoot turns "C:" into "C:\", the form GetDriveType and disk usage expect.
func driveRoot(mountpoint string) string {
	if strings.HasSuffix(mountpoint, `\`) {
		return mountpoint
	}
	return mountpoint + `\`
}
