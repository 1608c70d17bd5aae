//go:build !windows

package main

// Only Windows reports drive types; other hosts list partitions without per-drive usage.
func isFixedDrive(string) bool { return false }

func driveRoot(mountpoint string) string { return mountpoint }
