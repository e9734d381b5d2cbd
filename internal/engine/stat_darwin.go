//go:build darwin

package engine

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// statTimes returns the access and change times from a syscall.Stat_t.
func statTimes(stat *syscall.Stat_t) (atime, ctime time.Time) {
	return time.Unix(stat.Atimespec.Sec, stat.Atimespec.Nsec),
		time.Unix(stat.Ctimespec.Sec, stat.Ctimespec.Nsec)
}

// devFromStat returns the device number from a syscall.Stat_t.
func devFromStat(stat *syscall.Stat_t) uint64 {
	return uint64(stat.Dev) //nolint:gosec // G115: dev_t is int32 on darwin, always non-negative
}

// setFileTimes sets atime and mtime on a file by path.
// Darwin lacks AT_EMPTY_PATH, so we always use path-based utimensat.
func setFileTimes(fd *os.File, accTime, modTime time.Time) error {
	times := []unix.Timespec{
		unix.NsecToTimespec(accTime.UnixNano()),
		unix.NsecToTimespec(modTime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, fd.Name(), times, 0); err != nil {
		return fmt.Errorf("utimensat: %w", err)
	}
	return nil
}
