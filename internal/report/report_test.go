package report_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/tiers/internal/engine"
	"github.com/bamsammich/tiers/internal/report"
	"github.com/bamsammich/tiers/internal/stats"
	"github.com/bamsammich/tiers/internal/tier"
)

func testTiers(t *testing.T) []*tier.Tier {
	t.Helper()
	c0, c1 := int64(1000), int64(10000)
	tiers, err := tier.NewSet([]tier.Config{
		{Path: "/fast", Target: 50, MockCapacity: &c0},
		{Path: "/slow", Target: 100, MockCapacity: &c1},
	})
	require.NoError(t, err)
	return tiers
}

func TestTiers(t *testing.T) {
	var buf bytes.Buffer
	report.New(&buf, false, false).Tiers(testTiers(t))

	out := buf.String()
	assert.Contains(t, out, "▸ Tiers")
	assert.Contains(t, out, "/fast")
	assert.Contains(t, out, "(mock)")
	assert.Contains(t, out, "50%")
	assert.NotContains(t, out, "\x1b[", "no escape codes without color")
}

func TestTiers_Color(t *testing.T) {
	var buf bytes.Buffer
	report.New(&buf, true, false).Tiers(testTiers(t))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestPlan(t *testing.T) {
	plan := engine.Plan{
		Files: []tier.FileEntry{
			{Paths: []string{"/slow/a"}, Size: 100, TierIndex: 1},
			{Paths: []string{"/fast/b"}, Size: 200, TierIndex: 0},
			{Paths: []string{"/fast/c"}, Size: 300, TierIndex: 0},
		},
		Boundaries: []int{1, 2},
		Excluded:   []tier.FileEntry{{Paths: []string{"/fast/archive/x"}}},
	}

	var buf bytes.Buffer
	report.New(&buf, false, true).Plan(plan, testTiers(t))

	out := buf.String()
	assert.Contains(t, out, "INCOMING")
	assert.Contains(t, out, "1 file pinned by ignore rules")
	assert.Contains(t, out, "1 → 0  /slow/a")
	assert.Contains(t, out, "0 → 1  /fast/c")
	assert.NotContains(t, out, "/fast/b\n", "files already in place are not listed")
}

func TestPlan_Empty(t *testing.T) {
	var buf bytes.Buffer
	report.New(&buf, false, false).Plan(engine.Plan{}, testTiers(t))
	assert.Contains(t, buf.String(), "no movable files")
}

func TestSummary(t *testing.T) {
	collector := stats.NewCollector()
	collector.AddFilesMoved(2)
	collector.AddBytesMoved(2048)
	collector.AddMovesFailed(1)

	tests := []struct {
		name string
		res  engine.Result
		want string
	}{
		{"converged", engine.Result{Move: engine.MoveResult{Outcome: engine.Converged, Passes: 1}}, "✓ converged after 1 pass"},
		{"limit", engine.Result{Move: engine.MoveResult{Outcome: engine.LimitReached, Passes: 3, Pending: 2}}, "iteration limit reached after 3 passes, 2 files pending"},
		{"stalled", engine.Result{Move: engine.MoveResult{Outcome: engine.Stalled, Passes: 2, Pending: 1}}, "stalled after 2 passes, 1 file could not be placed"},
		{"error", engine.Result{Err: errors.New("tier 0: no capacity")}, "✗ tier 0: no capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.res.Stats = collector.Snapshot()
			var buf bytes.Buffer
			report.New(&buf, false, false).Summary(tt.res)

			out := buf.String()
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "2 files (2.0 KiB)")
			assert.Contains(t, out, "failed:")
		})
	}
}

func TestSchedule(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2024, 3, 16, 2, 0, 0, 0, time.UTC)
	report.New(&buf, false, false).Schedule("daily", []time.Time{at})

	assert.Contains(t, buf.String(), "Schedule daily")
	assert.Contains(t, buf.String(), at.Format(time.RFC1123))
}
