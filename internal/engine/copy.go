package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/time/rate"

	"github.com/bamsammich/tiers/internal/platform"
)

// copyContent copies size bytes from src to dst. Without a limiter the
// kernel copy path is used; with one, bytes are streamed through it.
func copyContent(ctx context.Context, src, dst *os.File, size int64, limiter *rate.Limiter) error {
	var written int64
	if limiter == nil {
		res, err := platform.CopyFile(platform.CopyFileParams{Src: src, Dst: dst, Size: size})
		if err != nil {
			return fmt.Errorf("copy %s: %w", src.Name(), err)
		}
		written = res.BytesWritten
	} else {
		buf := make([]byte, 256*1024)
		n, err := io.CopyBuffer(dst, newRateLimitedReader(ctx, io.LimitReader(src, size), limiter), buf)
		if err != nil {
			return fmt.Errorf("copy %s: %w", src.Name(), err)
		}
		written = n
	}

	if written != size {
		return fmt.Errorf("%s: copied %d of %d bytes: %w", src.Name(), written, size, ErrSourceChanged)
	}
	return nil
}
