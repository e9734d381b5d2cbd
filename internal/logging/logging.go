// Package logging configures slog output and turns engine events into log
// records.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bamsammich/tiers/internal/event"
)

// ParseLevel maps a configured level name to a slog level. The empty string
// means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info", "information":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// Options selects the console level and optional JSON log file.
type Options struct {
	Stderr  io.Writer // defaults to os.Stderr
	LogFile string
	Level   slog.Level
}

// Setup builds the process logger: text on stderr at opts.Level, plus a
// debug-level JSON log when LogFile is set. The returned close func flushes
// and closes the log file.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: opts.Level})
	if opts.LogFile == "" {
		return slog.New(textHandler), func() error { return nil }, nil
	}

	lf, err := os.Create(opts.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewMultiHandler(textHandler, jsonHandler)), lf.Close, nil
}

// Level returns the log level for an event type.
func Level(t event.Type) slog.Level {
	switch t {
	case event.MoveFailed, event.LimitReached, event.Stalled:
		return slog.LevelWarn
	case event.EntrySkipped, event.MoveRejected, event.HardlinkCreated,
		event.PassComplete, event.StagingCleaned:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Drain logs every event from events until the channel is closed.
func Drain(events <-chan event.Event, logger *slog.Logger) {
	for ev := range events {
		Log(logger, ev)
	}
}

// Log writes a single event as a structured record.
func Log(logger *slog.Logger, ev event.Event) {
	level := Level(ev.Type)
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{slog.String("type", ev.Type.String())}
	if ev.Tier >= 0 {
		attrs = append(attrs, slog.Int("tier", ev.Tier))
	}
	if ev.Target >= 0 {
		attrs = append(attrs, slog.Int("target", ev.Target))
	}
	if ev.Path != "" {
		attrs = append(attrs, slog.String("path", ev.Path))
	}
	if ev.Size != 0 {
		attrs = append(attrs, slog.Int64("size", ev.Size))
	}
	if ev.Count != 0 {
		attrs = append(attrs, slog.Int("count", ev.Count))
	}
	if ev.Pass != 0 {
		attrs = append(attrs, slog.Int("pass", ev.Pass))
	}
	if ev.Error != nil {
		attrs = append(attrs, slog.String("error", ev.Error.Error()))
	}
	logger.LogAttrs(ctx, level, message(ev.Type), attrs...)
}

func message(t event.Type) string {
	switch t {
	case event.ScanStarted:
		return "scan started"
	case event.TierScanned:
		return "tier scanned"
	case event.ScanComplete:
		return "scan complete"
	case event.EntrySkipped:
		return "entry skipped"
	case event.FilesExcluded:
		return "files excluded"
	case event.BoundaryAssigned:
		return "tier assignment"
	case event.PlanComplete:
		return "plan complete"
	case event.MoveCompleted:
		return "moved"
	case event.MoveRejected:
		return "move deferred, destination full"
	case event.MoveFailed:
		return "move failed"
	case event.HardlinkCreated:
		return "hardlink recreated"
	case event.PassComplete:
		return "pass complete"
	case event.Converged:
		return "converged"
	case event.Stalled:
		return "no further progress possible"
	case event.LimitReached:
		return "iteration limit reached"
	case event.StagingCleaned:
		return "staging cleaned"
	default:
		return "event"
	}
}
