package engine

import (
	"cmp"
	"slices"

	"github.com/bamsammich/tiers/internal/event"
	"github.com/bamsammich/tiers/internal/rule"
	"github.com/bamsammich/tiers/internal/stats"
	"github.com/bamsammich/tiers/internal/tier"
)

// PlannerConfig controls planner behavior.
type PlannerConfig struct {
	Events chan<- event.Event
	Stats  *stats.Collector
	Plans  []rule.FolderPlan
}

// Plan is the planner's placement decision. Each tier is packed against
// Tier.Budget, which counts the movable files already resident on it, so a
// tier's assigned bytes may exceed its Free at planning time.
type Plan struct {
	// Files is the reorganized movable list: tier 0's files first, then
	// tier 1's, with the last tier's overflow at the end.
	Files []tier.FileEntry
	// Boundaries[i] is the index in Files of tier i's last file. A tier
	// assigned nothing repeats the previous boundary (-1 before any file).
	Boundaries []int
	// Excluded files are pinned in place by ignore plans.
	Excluded []tier.FileEntry
}

// DesiredTiers expands Boundaries into the desired tier of every position
// in Files.
func (p Plan) DesiredTiers() []int {
	desired := make([]int, len(p.Files))
	t := 0
	for i := range p.Files {
		for t < len(p.Boundaries)-1 && i > p.Boundaries[t] {
			t++
		}
		desired[i] = t
	}
	return desired
}

// TierFiles returns the files assigned to tier t.
func (p Plan) TierFiles(t int) []tier.FileEntry {
	if t < 0 || t >= len(p.Boundaries) {
		return nil
	}
	start := 0
	if t > 0 {
		start = p.Boundaries[t-1] + 1
	}
	return p.Files[start : p.Boundaries[t]+1]
}

// Planner orders files by folder rules and packs them into tier budgets.
type Planner struct {
	cfg PlannerConfig
}

// NewPlanner creates a planner. Plans are evaluated in descending priority.
func NewPlanner(cfg PlannerConfig) *Planner {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	cfg.Plans = rule.SortByPriority(cfg.Plans)
	return &Planner{cfg: cfg}
}

// Distribute computes the placement of files across tiers. Tiers are read,
// never mutated.
func (p *Planner) Distribute(files []tier.FileEntry, tiers []*tier.Tier) Plan {
	movable, excluded := p.exclude(files)
	if len(excluded) > 0 {
		p.cfg.Stats.AddFilesExcluded(int64(len(excluded)))
	}
	event.Emit(p.cfg.Events, event.Event{
		Type:   event.FilesExcluded,
		Tier:   -1,
		Target: -1,
		Count:  len(excluded),
	})

	ordered := p.order(movable)
	plan := pack(ordered, tiers)
	plan.Excluded = excluded

	for t := range plan.Boundaries {
		assigned := plan.TierFiles(t)
		var bytes int64
		for _, f := range assigned {
			bytes += f.Size
		}
		event.Emit(p.cfg.Events, event.Event{
			Type:   event.BoundaryAssigned,
			Tier:   t,
			Target: -1,
			Count:  len(assigned),
			Size:   bytes,
		})
	}
	event.Emit(p.cfg.Events, event.Event{Type: event.PlanComplete, Tier: -1, Target: -1, Count: len(plan.Files)})
	return plan
}

// exclude splits files into movable and pinned, evaluating ignore plans
// highest priority first.
func (p *Planner) exclude(files []tier.FileEntry) (movable, excluded []tier.FileEntry) {
	var ignores []rule.FolderPlan
	for _, fp := range p.cfg.Plans {
		if fp.Ignores() {
			ignores = append(ignores, fp)
		}
	}

	for _, f := range files {
		if slices.ContainsFunc(ignores, func(fp rule.FolderPlan) bool { return fp.Matches(f) }) {
			excluded = append(excluded, f)
			continue
		}
		movable = append(movable, f)
	}
	return movable, excluded
}

type scored struct {
	file  tier.FileEntry
	score int64
}

// order returns matched files ascending by score, then unmatched files
// ascending by size. The first matching plan claims a file.
func (p *Planner) order(files []tier.FileEntry) []tier.FileEntry {
	claimed := make([]bool, len(files))
	var matched []scored

	for _, fp := range p.cfg.Plans {
		if fp.Rule == nil || fp.Ignores() {
			continue
		}
		for i, f := range files {
			if claimed[i] || !fp.Matches(f) {
				continue
			}
			claimed[i] = true
			matched = append(matched, scored{file: f, score: fp.Score(f)})
		}
	}

	slices.SortStableFunc(matched, func(a, b scored) int {
		return cmp.Compare(a.score, b.score)
	})

	var unmatched []tier.FileEntry
	for i, f := range files {
		if !claimed[i] {
			unmatched = append(unmatched, f)
		}
	}

	out := make([]tier.FileEntry, 0, len(files))
	for _, s := range matched {
		out = append(out, s.file)
	}
	return append(out, sortedBySize(unmatched)...)
}

// pack greedily fills tiers 0..N-2 in order. A file that does not fit is
// skipped, not a cutoff; later smaller files may still be admitted. The last
// tier takes everything left.
func pack(ordered []tier.FileEntry, tiers []*tier.Tier) Plan {
	if len(ordered) == 0 || len(tiers) == 0 {
		return Plan{}
	}

	resident := make([]int64, len(tiers))
	for _, f := range ordered {
		if f.TierIndex >= 0 && f.TierIndex < len(tiers) {
			resident[f.TierIndex] += f.Size
		}
	}

	taken := make([]bool, len(ordered))
	out := make([]tier.FileEntry, 0, len(ordered))
	boundaries := make([]int, len(tiers))

	for t := 0; t < len(tiers)-1; t++ {
		budget := tiers[t].Budget(resident[t])
		var sum int64
		for i, f := range ordered {
			if taken[i] || sum+f.Size > budget {
				continue
			}
			sum += f.Size
			taken[i] = true
			out = append(out, f)
		}
		boundaries[t] = len(out) - 1
	}

	for i, f := range ordered {
		if !taken[i] {
			out = append(out, f)
		}
	}
	boundaries[len(tiers)-1] = len(out) - 1

	return Plan{Files: out, Boundaries: boundaries}
}

func sortedBySize(files []tier.FileEntry) []tier.FileEntry {
	out := slices.Clone(files)
	slices.SortStableFunc(out, func(a, b tier.FileEntry) int {
		return cmp.Compare(a.Size, b.Size)
	})
	return out
}
