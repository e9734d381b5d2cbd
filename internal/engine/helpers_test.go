package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/tiers/internal/event"
	"github.com/bamsammich/tiers/internal/tier"
)

// writeFile creates path (and its parents) holding size bytes.
func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644))
}

func mockConfig(root string, capacity int64, target int) tier.Config {
	return tier.Config{Path: root, Target: target, MockCapacity: &capacity}
}

// mockTiers builds tiers and records scanned usage for each.
func mockTiers(t *testing.T, used []int64, cfgs ...tier.Config) []*tier.Tier {
	t.Helper()
	tiers, err := tier.NewSet(cfgs)
	require.NoError(t, err)
	for i, tr := range tiers {
		var u int64
		if i < len(used) {
			u = used[i]
		}
		require.NoError(t, tr.Observe(u))
	}
	return tiers
}

// tierDirs creates n empty tier roots under a temp dir.
func tierDirs(t *testing.T, n int) []string {
	t.Helper()
	base := t.TempDir()
	roots := make([]string, n)
	for i := range roots {
		roots[i] = filepath.Join(base, "tier"+string(rune('0'+i)))
		require.NoError(t, os.MkdirAll(roots[i], 0o755))
	}
	return roots
}

// eventLog drains an event channel for the duration of a test.
type eventLog struct {
	ch     chan event.Event
	done   chan struct{}
	events []event.Event
}

func newEventLog() *eventLog {
	l := &eventLog{ch: make(chan event.Event, 16), done: make(chan struct{})}
	go func() {
		for e := range l.ch {
			l.events = append(l.events, e)
		}
		close(l.done)
	}()
	return l
}

// stop closes the channel and returns everything received.
func (l *eventLog) stop() []event.Event {
	close(l.ch)
	<-l.done
	return l.events
}

func ofType(events []event.Event, typ event.Type) []event.Event {
	var out []event.Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func sizes(files []tier.FileEntry) []int64 {
	out := make([]int64, len(files))
	for i, f := range files {
		out[i] = f.Size
	}
	return out
}

func findFile(t *testing.T, files []tier.FileEntry, name string) tier.FileEntry {
	t.Helper()
	for _, f := range files {
		if f.Name() == name {
			return f
		}
	}
	t.Fatalf("no file named %s", name)
	return tier.FileEntry{}
}
