package engine

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

const retryAttempts = 5

// retryBase is the first backoff delay; it doubles on each attempt.
var retryBase = 50 * time.Millisecond

// retry runs fn until it succeeds, fails with a non-transient error, or
// exhausts retryAttempts. Used by rename, link and unlink, which can hit
// transient errors on network and fuse filesystems.
func retry(ctx context.Context, opName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return fmt.Errorf("%s: %w", opName, err)
		}
		if attempt == retryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBase << (attempt - 1)):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", opName, retryAttempts, lastErr)
}

// isTransient reports whether err is worth retrying.
func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EINTR)
}
