package engine

import (
	"context"
	"fmt"

	"github.com/bamsammich/tiers/internal/event"
	"github.com/bamsammich/tiers/internal/rule"
	"github.com/bamsammich/tiers/internal/stats"
	"github.com/bamsammich/tiers/internal/tier"
)

// DefaultStagingDir is the staging directory name under each tier root.
const DefaultStagingDir = "tmp"

// Config describes one rebalancing run.
type Config struct {
	Events         chan<- event.Event
	Stats          *stats.Collector
	StagingDir     string
	Tiers          []tier.Config
	Plans          []rule.FolderPlan
	IterationLimit int
	BWLimit        int64
	Verify         bool
	DryRun         bool // scan and plan only
}

// Result is the outcome of a run.
type Result struct {
	Err   error
	Tiers []*tier.Tier
	Scan  ScanResult
	Plan  Plan
	Move  MoveResult
	Stats stats.Snapshot
}

// Run executes scan, plan and move, blocking until complete. Partial
// convergence is not an error; Err is set only for tier setup failures and
// cancellation.
func Run(ctx context.Context, cfg Config) Result {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = DefaultStagingDir
	}

	var res Result
	finish := func(err error) Result {
		res.Err = err
		res.Stats = cfg.Stats.Snapshot()
		return res
	}

	tiers, err := tier.NewSet(cfg.Tiers)
	if err != nil {
		return finish(err)
	}
	res.Tiers = tiers

	roots := make([]string, len(tiers))
	for i, t := range tiers {
		roots[i] = t.Path
	}

	if !cfg.DryRun {
		for i, root := range roots {
			removed, err := RemoveStaleStaging(root, cfg.StagingDir)
			if len(removed) > 0 || err != nil {
				event.Emit(cfg.Events, event.Event{
					Type:   event.StagingCleaned,
					Tier:   i,
					Target: -1,
					Path:   root,
					Count:  len(removed),
					Error:  err,
				})
			}
		}
	}

	scan, err := NewScanner(ScannerConfig{
		Roots:      roots,
		StagingDir: cfg.StagingDir,
		Events:     cfg.Events,
		Stats:      cfg.Stats,
	}).Scan(ctx)
	if err != nil {
		return finish(err)
	}
	res.Scan = scan

	for i, t := range tiers {
		if err := t.Observe(scan.TierBytes[i]); err != nil {
			return finish(fmt.Errorf("observe usage: %w", err))
		}
	}

	res.Plan = NewPlanner(PlannerConfig{
		Plans:  cfg.Plans,
		Events: cfg.Events,
		Stats:  cfg.Stats,
	}).Distribute(scan.Files, tiers)

	if cfg.DryRun {
		return finish(nil)
	}

	res.Move = NewMover(MoverConfig{
		Tiers:          tiers,
		IterationLimit: cfg.IterationLimit,
		StagingDir:     cfg.StagingDir,
		Verify:         cfg.Verify,
		BWLimit:        cfg.BWLimit,
		Events:         cfg.Events,
		Stats:          cfg.Stats,
	}).Apply(ctx, res.Plan)

	if res.Move.Err != nil {
		if n := CleanupStaging(); n > 0 {
			event.Emit(cfg.Events, event.Event{Type: event.StagingCleaned, Tier: -1, Target: -1, Count: n})
		}
		return finish(res.Move.Err)
	}
	return finish(nil)
}
