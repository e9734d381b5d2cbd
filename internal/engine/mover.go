package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/bamsammich/tiers/internal/event"
	"github.com/bamsammich/tiers/internal/stats"
	"github.com/bamsammich/tiers/internal/tier"
)

// DefaultIterationLimit bounds convergence passes when none is configured.
const DefaultIterationLimit = 20

var (
	// ErrSourceChanged means the source no longer matches its scanned record.
	ErrSourceChanged = errors.New("source changed since scan")
	// ErrVerifyMismatch means the staged copy's content differs from the source.
	ErrVerifyMismatch = errors.New("content verification failed")
	// ErrDestinationExists means a different file already occupies a
	// destination path.
	ErrDestinationExists = errors.New("destination path holds a different file")
)

// Filesystem calls that tests replace to inject failures.
var (
	linkFile   = os.Link
	removeFile = os.Remove
)

// Outcome is how a convergence loop terminated.
type Outcome int

const (
	Converged    Outcome = iota // every file is on its desired tier
	Stalled                     // a pass made no progress
	LimitReached                // the iteration limit ran out while still progressing
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case Stalled:
		return "stalled"
	case LimitReached:
		return "limit reached"
	default:
		return "unknown"
	}
}

// MoverConfig controls mover behavior.
type MoverConfig struct {
	Events         chan<- event.Event
	Stats          *stats.Collector
	StagingDir     string
	Tiers          []*tier.Tier
	IterationLimit int
	BWLimit        int64 // bytes/sec across all copies, 0 = unlimited
	Verify         bool
}

// MoveResult is the state after the convergence loop.
type MoveResult struct {
	Err     error            // set only when the context was canceled
	Files   []tier.FileEntry // plan.Files with tier assignments as they now stand
	Passes  int
	Moved   int
	Pending int // files still not on their desired tier
	Outcome Outcome
}

// Mover relocates files between tiers. It is not safe for concurrent use:
// it is the only writer of tier free-space counters.
type Mover struct {
	limiter *rate.Limiter
	cfg     MoverConfig
	pass    int
}

// NewMover creates a mover over the tiers the plan was computed against.
func NewMover(cfg MoverConfig) *Mover {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	if cfg.IterationLimit <= 0 {
		cfg.IterationLimit = DefaultIterationLimit
	}
	m := &Mover{cfg: cfg}
	if cfg.BWLimit > 0 {
		m.limiter = NewBWLimiter(cfg.BWLimit)
	}
	return m
}

// Apply moves files toward their planned tiers until a pass makes no
// progress or the iteration limit is reached. plan is not modified.
func (m *Mover) Apply(ctx context.Context, plan Plan) MoveResult {
	files := slices.Clone(plan.Files)
	desired := plan.DesiredTiers()
	res := MoveResult{Files: files}

	for pass := 1; pass <= m.cfg.IterationLimit; pass++ {
		m.pass = pass
		progress := false

		for i, f := range files {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				res.Pending = pending(files, desired)
				return res
			}
			if f.TierIndex == desired[i] {
				continue
			}
			// Replace the slot; the old entry is never mutated.
			if moved, ok := m.move(ctx, f, desired[i]); ok {
				files[i] = moved
				res.Moved++
				progress = true
			}
		}

		res.Passes = pass
		res.Pending = pending(files, desired)
		m.cfg.Stats.AddPasses(1)
		event.Emit(m.cfg.Events, event.Event{
			Type:   event.PassComplete,
			Tier:   -1,
			Target: -1,
			Pass:   pass,
			Count:  res.Pending,
		})

		switch {
		case res.Pending == 0:
			res.Outcome = Converged
		case !progress:
			res.Outcome = Stalled
		case pass == m.cfg.IterationLimit:
			res.Outcome = LimitReached
		default:
			continue
		}
		break
	}

	m.emitOutcome(res)
	return res
}

func (m *Mover) emitOutcome(res MoveResult) {
	typ := event.Converged
	switch res.Outcome {
	case Stalled:
		typ = event.Stalled
	case LimitReached:
		typ = event.LimitReached
	}
	event.Emit(m.cfg.Events, event.Event{
		Type:   typ,
		Tier:   -1,
		Target: -1,
		Pass:   res.Passes,
		Count:  res.Pending,
	})
}

func pending(files []tier.FileEntry, desired []int) int {
	n := 0
	for i, f := range files {
		if f.TierIndex != desired[i] {
			n++
		}
	}
	return n
}

// MoveFile relocates f to tier target and reports success. It returns true
// without side effects when f is already there. f itself is never modified;
// callers tracking f must replace it on success.
func (m *Mover) MoveFile(ctx context.Context, f tier.FileEntry, target int) bool {
	_, ok := m.move(ctx, f, target)
	return ok
}

// move returns the relocated entry on success.
func (m *Mover) move(ctx context.Context, f tier.FileEntry, target int) (tier.FileEntry, bool) {
	if f.TierIndex == target {
		return f, true
	}
	if target < 0 || target >= len(m.cfg.Tiers) || f.TierIndex < 0 || f.TierIndex >= len(m.cfg.Tiers) {
		m.fail(f, target, fmt.Errorf("tier index out of range (%d -> %d)", f.TierIndex, target))
		return f, false
	}

	src, dst := m.cfg.Tiers[f.TierIndex], m.cfg.Tiers[target]
	if !dst.Admits(f.Size) {
		m.cfg.Stats.AddMovesRejected(1)
		event.Emit(m.cfg.Events, event.Event{
			Type:   event.MoveRejected,
			Tier:   f.TierIndex,
			Target: target,
			Path:   f.Canonical(),
			Size:   f.Size,
			Pass:   m.pass,
		})
		return f, false
	}

	paths, err := m.relocate(ctx, f, src, dst)
	if err != nil {
		m.fail(f, target, err)
		return f, false
	}

	src.Release(f.Size)
	dst.Reserve(f.Size)
	m.cfg.Stats.AddFilesMoved(1)
	m.cfg.Stats.AddBytesMoved(f.Size)
	event.Emit(m.cfg.Events, event.Event{
		Type:   event.MoveCompleted,
		Tier:   f.TierIndex,
		Target: target,
		Path:   paths[0],
		Size:   f.Size,
		Pass:   m.pass,
	})
	return f.WithLocation(target, paths), true
}

func (m *Mover) fail(f tier.FileEntry, target int, err error) {
	m.cfg.Stats.AddMovesFailed(1)
	event.Emit(m.cfg.Events, event.Event{
		Type:   event.MoveFailed,
		Tier:   f.TierIndex,
		Target: target,
		Path:   f.Canonical(),
		Size:   f.Size,
		Pass:   m.pass,
		Error:  err,
	})
}

// relocate performs the physical move and returns the destination paths.
// Until the staged copy is renamed into place the source is untouched.
func (m *Mover) relocate(ctx context.Context, f tier.FileEntry, src, dst *tier.Tier) ([]string, error) {
	dstPaths, err := f.Rebase(src.Path, dst.Path)
	if err != nil {
		return nil, err
	}
	for _, p := range dstPaths {
		if err := checkDestination(p, f); err != nil {
			return nil, err
		}
	}

	staged, err := m.stage(ctx, f, dst)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		globalStaging.deregister(staged)
		if !committed {
			_ = os.Remove(staged)
		}
	}()

	if err := checkSource(f); err != nil {
		return nil, err
	}
	if m.cfg.Verify {
		if err := verifyCopy(f.Canonical(), staged); err != nil {
			return nil, err
		}
	}

	canonical := dstPaths[0]
	if err := os.MkdirAll(filepath.Dir(canonical), 0o755); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", canonical, err)
	}
	if err := retry(ctx, "rename "+staged, func() error { return os.Rename(staged, canonical) }); err != nil {
		return nil, err
	}
	committed = true

	if err := m.linkAliases(ctx, f, canonical, dstPaths[1:]); err != nil {
		return nil, err
	}

	// Aliases first, canonical last: the canonical path is what a re-run
	// rescans, so it goes only once nothing else references the inode.
	for i := len(f.Paths) - 1; i >= 0; i-- {
		p := f.Paths[i]
		err := retry(ctx, "remove "+p, func() error { return removeFile(p) })
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	for _, p := range f.Paths {
		pruneEmptyDirs(src.Path, filepath.Dir(p))
	}
	return dstPaths, nil
}

// stage copies f into a fresh staging file under dst with f's metadata
// applied, and returns the staging path.
func (m *Mover) stage(ctx context.Context, f tier.FileEntry, dst *tier.Tier) (string, error) {
	dir := filepath.Join(dst.Path, m.cfg.StagingDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir %s: %w", dir, err)
	}

	in, err := os.Open(f.Canonical())
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Canonical(), err)
	}
	defer in.Close()

	staged := stagingPath(dir, f.Name())
	out, err := os.OpenFile(staged, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	globalStaging.register(staged)

	err = copyContent(ctx, in, out, f.Size, m.limiter)
	if err == nil {
		err = setFileMetadata(out, f)
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", staged, cerr)
	}
	if err != nil {
		_ = os.Remove(staged)
		globalStaging.deregister(staged)
		return "", err
	}
	return staged, nil
}

// linkAliases recreates every alias as a hardlink to canonical. On failure
// every destination path created so far, canonical included, is removed so
// the source stays the only copy.
func (m *Mover) linkAliases(ctx context.Context, f tier.FileEntry, canonical string, aliases []string) error {
	created := []string{canonical}
	for _, alias := range aliases {
		err := os.MkdirAll(filepath.Dir(alias), 0o755)
		if err == nil {
			// A leftover from an interrupted move was vetted by checkDestination.
			_ = os.Remove(alias)
			err = retry(ctx, "link "+alias, func() error { return linkFile(canonical, alias) })
		}
		if err != nil {
			for _, p := range created {
				_ = os.Remove(p)
			}
			return fmt.Errorf("recreate hardlink %s: %w", alias, err)
		}
		created = append(created, alias)
		m.cfg.Stats.AddHardlinksCreated(1)
		event.Emit(m.cfg.Events, event.Event{
			Type:   event.HardlinkCreated,
			Tier:   -1,
			Target: -1,
			Path:   alias,
			Pass:   m.pass,
		})
	}
	return nil
}

// setFileMetadata restores ownership, permission bits and timestamps on the
// staged copy. chown can clear setuid bits, so it runs before chmod.
//
//nolint:gosec // G115: fd, uid and gid values fit in int
func setFileMetadata(fd *os.File, f tier.FileEntry) error {
	rawFd := int(fd.Fd())

	// Without CAP_CHOWN only the current owner can be kept; tolerated.
	if err := unix.Fchown(rawFd, int(f.UID), int(f.GID)); err != nil && !errors.Is(err, unix.EPERM) {
		return fmt.Errorf("fchown: %w", err)
	}
	if err := unix.Fchmod(rawFd, f.Mode&0o7777); err != nil {
		return fmt.Errorf("fchmod: %w", err)
	}
	return setFileTimes(fd, f.AccessTime, f.ModifyTime)
}

// checkSource re-stats the canonical source and fails when it no longer
// matches the scanned inode, size or modification time.
func checkSource(f tier.FileEntry) error {
	info, err := os.Lstat(f.Canonical())
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stat.Ino != f.Inode || info.Size() != f.Size || !info.ModTime().Equal(f.ModifyTime) {
		return fmt.Errorf("%s: %w", f.Canonical(), ErrSourceChanged)
	}
	return nil
}

// checkDestination allows a destination path that is absent, or that holds
// a copy of f left by an interrupted move. A leftover must match f's size
// and mtime and have the same content as the source.
func checkDestination(path string, f tier.FileEntry) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}
	if !info.Mode().IsRegular() || info.Size() != f.Size || !info.ModTime().Equal(f.ModifyTime) {
		return fmt.Errorf("%s: %w", path, ErrDestinationExists)
	}

	want, err := hashFile(f.Canonical())
	if err != nil {
		return err
	}
	got, err := hashFile(path)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("%s: %w", path, ErrDestinationExists)
	}
	return nil
}

// pruneEmptyDirs removes dir and its ancestors while they are empty,
// stopping below root.
func pruneEmptyDirs(root, dir string) {
	root = filepath.Clean(root)
	for dir = filepath.Clean(dir); dir != root && len(dir) > len(root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			return
		}
	}
}
