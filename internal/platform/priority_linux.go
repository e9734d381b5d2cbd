//go:build linux

package platform

// The raw getpriority syscall on Linux returns 20-nice to avoid negative values.
func normalizePriority(raw int) int { return 20 - raw }
