//go:build !linux

package platform

// CopyFile copies with pread/pwrite on platforms without copy_file_range.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	return copyReadWrite(params)
}
