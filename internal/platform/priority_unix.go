//go:build unix

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetPriority sets the scheduling niceness of the current process
// (-20 highest, 19 lowest). Raising priority usually requires privileges.
func SetPriority(nice int) error {
	if nice < -20 || nice > 19 {
		return fmt.Errorf("priority %d out of range -20..19", nice)
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		return fmt.Errorf("setpriority %d: %w", nice, err)
	}
	return nil
}

// Priority returns the current process niceness.
func Priority() (int, error) {
	// getpriority(2) returns 20-nice on Linux; x/sys passes the raw value.
	prio, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("getpriority: %w", err)
	}
	return normalizePriority(prio), nil
}
