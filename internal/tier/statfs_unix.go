//go:build linux || darwin

package tier

import "golang.org/x/sys/unix"

// deviceUsage returns the total and used bytes of the filesystem holding path.
// Used counts everything not available to unprivileged writers, matching
// what df reports.
//
//nolint:unconvert // Statfs_t field widths differ between linux and darwin
func deviceUsage(path string) (total, used int64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	bsize := int64(st.Bsize)
	total = int64(st.Blocks) * bsize
	avail := int64(st.Bavail) * bsize
	return total, total - avail, nil
}
