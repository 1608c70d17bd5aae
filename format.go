package main

import (
	"fmt"
	"strconv"
	"strings"
)

const bytesPerGB = 1 << 30

// round2 rounds the stored binary value to two decimals, so 4.005
// (stored just below) becomes 4.0 and 2.675 becomes 2.67.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// formatNumber prints the shortest form of v with at least one decimal: 16.0, 4.0, 25.03.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEN") {
		s += ".0"
	}
	return s
}

func gb(bytes uint64) float64 {
	return float64(bytes) / bytesPerGB
}

// formatGB renders a byte count as rounded gigabytes without the unit.
func formatGB(bytes uint64) string {
	return formatNumber(round2(gb(bytes)))
}

func formatPercent(p float64) string {
	return formatNumber(round2(p))
}

func formatUptime(u Uptime) string {
	return fmt.Sprintf("%dd, %dh, %dmin", u.Days, u.Hours, u.Minutes)
}

// driveLabel turns a Windows device like `C:\` into `C`.
func driveLabel(device string) string {
	return strings.TrimSuffix(strings.TrimSuffix(device, `\`), ":")
}

func orUnavailable(s string) string {
	if s == "" {
		return "unavailable"
	}
	return s
}
