package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/bamsammich/tiers/internal/event"
	"github.com/bamsammich/tiers/internal/stats"
	"github.com/bamsammich/tiers/internal/tier"
)

// DevIno uniquely identifies a file by device and inode number.
type DevIno struct {
	Dev uint64
	Ino uint64
}

// ScannerConfig controls scanner behavior.
type ScannerConfig struct {
	Events     chan<- event.Event
	Stats      *stats.Collector
	StagingDir string // relative to each root; never descended into
	Roots      []string
}

// ScanResult is the inventory of every tier.
type ScanResult struct {
	Files     []tier.FileEntry // tier 0's files first, then tier 1's, ...
	TierBytes []int64
	TierFiles []int
}

// BySize returns the files sorted ascending by size.
func (r ScanResult) BySize() []tier.FileEntry {
	return sortedBySize(r.Files)
}

// Scanner inventories tier roots, one goroutine per tier.
type Scanner struct {
	cfg ScannerConfig
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	return &Scanner{cfg: cfg}
}

type tierScan struct {
	files []tier.FileEntry
	bytes int64
}

// Scan walks every root concurrently and returns the combined inventory.
// Unreadable entries are skipped; only cancellation is an error.
func (s *Scanner) Scan(ctx context.Context) (ScanResult, error) {
	event.Emit(s.cfg.Events, event.Event{Type: event.ScanStarted, Tier: -1, Target: -1, Count: len(s.cfg.Roots)})

	results := make([]tierScan, len(s.cfg.Roots))
	var wg sync.WaitGroup
	for i, root := range s.cfg.Roots {
		i, root := i, root
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.scanTier(ctx, i, root)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{
		TierBytes: make([]int64, len(results)),
		TierFiles: make([]int, len(results)),
	}
	var total int64
	for i, r := range results {
		res.Files = append(res.Files, r.files...)
		res.TierBytes[i] = r.bytes
		res.TierFiles[i] = len(r.files)
		total += r.bytes
	}

	event.Emit(s.cfg.Events, event.Event{
		Type:   event.ScanComplete,
		Tier:   -1,
		Target: -1,
		Count:  len(res.Files),
		Size:   total,
	})
	return res, nil
}

// scanTier is an explicit-stack depth-first walk of one root. The inode map
// is owned by this goroutine alone.
func (s *Scanner) scanTier(ctx context.Context, idx int, root string) tierScan {
	var out tierScan
	seen := make(map[DevIno]int)
	staging := filepath.Join(root, s.cfg.StagingDir)

	stack := []string{root}
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return out
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.skip(idx, dir, fmt.Errorf("readdir %s: %w", dir, err))
			continue
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			info, err := os.Lstat(path)
			if err != nil {
				s.skip(idx, path, fmt.Errorf("lstat %s: %w", path, err))
				continue
			}

			mode := info.Mode()
			if mode.IsDir() {
				if s.cfg.StagingDir == "" || path != staging {
					stack = append(stack, path)
				}
				continue
			}
			// Symlinks, FIFOs, sockets and devices are never inventoried.
			if !mode.IsRegular() {
				continue
			}

			stat, ok := info.Sys().(*syscall.Stat_t)
			if !ok {
				s.skip(idx, path, fmt.Errorf("stat %s: no inode information", path))
				continue
			}

			key := DevIno{Dev: devFromStat(stat), Ino: stat.Ino}
			if at, dup := seen[key]; dup {
				out.files[at].Paths = append(out.files[at].Paths, path)
				continue
			}

			atime, ctime := statTimes(stat)
			seen[key] = len(out.files)
			out.files = append(out.files, tier.FileEntry{
				Paths:      []string{path},
				Dev:        key.Dev,
				Inode:      key.Ino,
				Size:       info.Size(),
				TierIndex:  idx,
				Mode:       uint32(mode.Perm()) | setidBits(mode),
				UID:        stat.Uid,
				GID:        stat.Gid,
				AccessTime: atime,
				ModifyTime: info.ModTime(),
				ChangeTime: ctime,
			})
			out.bytes += info.Size()
			s.cfg.Stats.AddFilesScanned(1)
			s.cfg.Stats.AddBytesScanned(info.Size())
		}
	}

	event.Emit(s.cfg.Events, event.Event{
		Type:   event.TierScanned,
		Tier:   idx,
		Target: -1,
		Path:   root,
		Count:  len(out.files),
		Size:   out.bytes,
	})
	return out
}

func (s *Scanner) skip(idx int, path string, err error) {
	s.cfg.Stats.AddEntriesSkipped(1)
	event.Emit(s.cfg.Events, event.Event{Type: event.EntrySkipped, Tier: idx, Target: -1, Path: path, Error: err})
}

// setidBits maps Go's mode flags back to the POSIX setuid/setgid/sticky bits.
func setidBits(mode os.FileMode) uint32 {
	var bits uint32
	if mode&os.ModeSetuid != 0 {
		bits |= syscall.S_ISUID
	}
	if mode&os.ModeSetgid != 0 {
		bits |= syscall.S_ISGID
	}
	if mode&os.ModeSticky != 0 {
		bits |= syscall.S_ISVTX
	}
	return bits
}
