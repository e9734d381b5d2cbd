//go:build linux

package platform

import (
	"errors"

	"golang.org/x/sys/unix"
)

// CopyFile copies params.Size bytes in-kernel with copy_file_range, falling
// back to pread/pwrite when the filesystem pair does not support it.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.Dst, params.Size)

	result, err := copyFileRange(params)
	if err == nil {
		return result, nil
	}
	// Only fall back if nothing was written; a partial in-kernel copy is a
	// real failure.
	if result.BytesWritten > 0 || !isFallbackErr(err) {
		return result, err
	}
	return copyReadWrite(params)
}

//nolint:gosec // G115: fd values are small non-negative integers
func copyFileRange(params CopyFileParams) (CopyResult, error) {
	var roff, woff int64
	remaining := params.Size
	var written int64

	for remaining > 0 {
		chunk := int(min(remaining, 1<<30))
		n, err := unix.CopyFileRange(int(params.Src.Fd()), &roff, int(params.Dst.Fd()), &woff, chunk, 0)
		if err != nil {
			return CopyResult{BytesWritten: written, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		written += int64(n)
	}

	return CopyResult{BytesWritten: written, Method: CopyFileRange}, nil
}

// isFallbackErr reports whether err means copy_file_range is unusable here.
func isFallbackErr(err error) bool {
	return errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EXDEV) ||
		errors.Is(err, unix.EINVAL) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.ENOTSUP)
}
