//go:build unix && !linux

package platform

func normalizePriority(raw int) int { return raw }
