//go:build !linux && !darwin

package tier

import "errors"

func deviceUsage(string) (int64, int64, error) {
	return 0, 0, errors.New("capacity detection unsupported on this platform; set mock_capacity")
}
