// Package report renders plans and run results for humans.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/bamsammich/tiers/internal/engine"
	"github.com/bamsammich/tiers/internal/tier"
	"github.com/bamsammich/tiers/internal/units"
)

// IsTTY returns true if the given file descriptor is a terminal.
//
//nolint:gosec // G115: fd values are small non-negative integers
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// Reporter writes human-readable output to w.
type Reporter struct {
	w       io.Writer
	header  *color.Color
	label   *color.Color
	good    *color.Color
	warn    *color.Color
	bad     *color.Color
	dim     *color.Color
	verbose bool
}

// New creates a reporter. Colors are emitted only when useColor is set.
func New(w io.Writer, useColor, verbose bool) *Reporter {
	r := &Reporter{
		w:       w,
		verbose: verbose,
		header:  color.New(color.FgBlue, color.Bold),
		label:   color.New(color.Bold),
		good:    color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		bad:     color.New(color.FgRed, color.Bold),
		dim:     color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{r.header, r.label, r.good, r.warn, r.bad, r.dim} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *Reporter) section(title string) {
	_, _ = r.header.Fprintf(r.w, "▸ %s\n", title)
}

// Tiers prints each tier's capacity accounting.
func (r *Reporter) Tiers(tiers []*tier.Tier) {
	r.section("Tiers")
	rows := make([][]string, 0, len(tiers))
	for _, t := range tiers {
		capacity := units.FormatBytes(t.Capacity)
		if t.Mock() {
			capacity += " (mock)"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.Index),
			t.Path,
			capacity,
			fmt.Sprintf("%d%%", t.Target),
			units.FormatBytes(t.AllowedSpace),
			units.FormatBytes(t.Used),
			units.FormatBytes(t.Free),
		})
	}
	r.table([]string{"TIER", "PATH", "CAPACITY", "TARGET", "ALLOWED", "USED", "FREE"}, rows)
}

// Plan prints what the plan assigns to each tier and how many files must move.
func (r *Reporter) Plan(plan engine.Plan, tiers []*tier.Tier) {
	r.section("Plan")
	if len(plan.Files) == 0 {
		_, _ = r.dim.Fprintln(r.w, "  no movable files")
	}

	desired := plan.DesiredTiers()
	moves := make([]int, len(plan.Boundaries))
	for i, f := range plan.Files {
		if f.TierIndex != desired[i] {
			moves[desired[i]]++
		}
	}

	rows := make([][]string, 0, len(plan.Boundaries))
	for t := range plan.Boundaries {
		files := plan.TierFiles(t)
		var bytes int64
		for _, f := range files {
			bytes += f.Size
		}
		path := ""
		if t < len(tiers) {
			path = tiers[t].Path
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", t),
			path,
			fmt.Sprintf("%d", len(files)),
			units.FormatBytes(bytes),
			fmt.Sprintf("%d", moves[t]),
		})
	}
	if len(rows) > 0 {
		r.table([]string{"TIER", "PATH", "FILES", "BYTES", "INCOMING"}, rows)
	}

	if len(plan.Excluded) > 0 {
		_, _ = r.dim.Fprintf(r.w, "  %s pinned by ignore rules\n", count(len(plan.Excluded), "file", "files"))
	}

	if r.verbose {
		for i, f := range plan.Files {
			if f.TierIndex == desired[i] {
				continue
			}
			_, _ = fmt.Fprintf(r.w, "  %s  %d → %d  %s\n",
				r.dim.Sprint(fmt.Sprintf("%10s", units.FormatBytes(f.Size))),
				f.TierIndex, desired[i], f.Canonical())
		}
	}
}

// Summary prints the outcome of a run.
func (r *Reporter) Summary(res engine.Result) {
	r.section("Result")
	mv := res.Move
	switch {
	case res.Err != nil:
		_, _ = r.bad.Fprintf(r.w, "✗ %v\n", res.Err)
	case mv.Outcome == engine.Converged:
		_, _ = r.good.Fprintf(r.w, "✓ converged after %s\n", count(mv.Passes, "pass", "passes"))
	case mv.Outcome == engine.LimitReached:
		_, _ = r.warn.Fprintf(r.w, "⚠ iteration limit reached after %s, %s pending\n",
			count(mv.Passes, "pass", "passes"), count(mv.Pending, "file", "files"))
	default:
		_, _ = r.warn.Fprintf(r.w, "⚠ stalled after %s, %s could not be placed\n",
			count(mv.Passes, "pass", "passes"), count(mv.Pending, "file", "files"))
	}

	s := res.Stats
	r.pair("moved", fmt.Sprintf("%s (%s)", count(int(s.FilesMoved), "file", "files"), units.FormatBytes(s.BytesMoved)))
	r.pair("scanned", fmt.Sprintf("%s (%s)", count(int(s.FilesScanned), "file", "files"), units.FormatBytes(s.BytesScanned)))
	if s.FilesExcluded > 0 {
		r.pair("excluded", fmt.Sprintf("%d", s.FilesExcluded))
	}
	if s.HardlinksCreated > 0 {
		r.pair("hardlinks", fmt.Sprintf("%d", s.HardlinksCreated))
	}
	if s.MovesRejected > 0 {
		r.pair("deferred", fmt.Sprintf("%d", s.MovesRejected))
	}
	if s.MovesFailed > 0 {
		r.pair("failed", r.bad.Sprint(s.MovesFailed))
	}
	if s.EntriesSkipped > 0 {
		r.pair("skipped", fmt.Sprintf("%d", s.EntriesSkipped))
	}
	r.pair("elapsed", s.Elapsed.Round(time.Millisecond).String())
}

// Schedule prints upcoming run times.
func (r *Reporter) Schedule(spec string, times []time.Time) {
	r.section("Schedule " + spec)
	for _, t := range times {
		_, _ = fmt.Fprintf(r.w, "  %s\n", t.Format(time.RFC1123))
	}
}

func (r *Reporter) pair(label, value string) {
	_, _ = r.label.Fprintf(r.w, "  %-10s ", label+":")
	_, _ = fmt.Fprintln(r.w, value)
}

func (r *Reporter) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len(cell))
			}
		}
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = fmt.Sprintf("%-*s", widths[i], h)
	}
	_, _ = r.label.Fprintf(r.w, "  %s\n", strings.TrimRight(strings.Join(cells, "  "), " "))

	for _, row := range rows {
		for i := range cells {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		_, _ = fmt.Fprintf(r.w, "  %s\n", strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
