package tier

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ErrNotUnderRoot is returned when a path does not live inside a tier root.
var ErrNotUnderRoot = errors.New("path is not inside tier root")

// FileEntry is the canonical record of one inode on one tier, possibly
// reachable through several hardlinked paths.
//
// Entries are values. A state change (the file landing on another tier) is
// expressed by building a new entry with WithLocation, never by mutating a
// shared one.
type FileEntry struct {
	ModifyTime time.Time
	AccessTime time.Time
	ChangeTime time.Time
	// Paths are the hardlink aliases; Paths[0] is canonical.
	Paths     []string
	Dev       uint64
	Inode     uint64
	Size      int64
	TierIndex int
	Mode      uint32 // permission bits (incl. setuid/setgid/sticky)
	UID       uint32
	GID       uint32
}

// Canonical returns the path used for relative-path derivation and copying.
func (f FileEntry) Canonical() string {
	if len(f.Paths) == 0 {
		return ""
	}
	return f.Paths[0]
}

// Name returns the base name of the canonical path.
func (f FileEntry) Name() string {
	return filepath.Base(f.Canonical())
}

// Aliases returns the non-canonical hardlink paths.
func (f FileEntry) Aliases() []string {
	if len(f.Paths) < 2 {
		return nil
	}
	return f.Paths[1:]
}

// WithLocation returns a copy of f residing on tier with the given paths.
// The receiver and its Paths slice are left untouched.
func (f FileEntry) WithLocation(tier int, paths []string) FileEntry {
	f.TierIndex = tier
	f.Paths = slices.Clone(paths)
	return f
}

// Rebase maps every alias from srcRoot to the same relative location under
// dstRoot, preserving order.
func (f FileEntry) Rebase(srcRoot, dstRoot string) ([]string, error) {
	out := make([]string, 0, len(f.Paths))
	for _, p := range f.Paths {
		rel, err := RelPath(srcRoot, p)
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.Join(dstRoot, rel))
	}
	return out, nil
}

// RelPath returns p relative to root, failing when p is not inside root.
func RelPath(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("rel path for %s: %w", p, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s (root %s): %w", p, root, ErrNotUnderRoot)
	}
	return rel, nil
}
