package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const stagingSuffix = ".tiers-tmp"

// stagingRegistry tracks in-flight staging files so an interrupted run can
// remove them before exiting.
var globalStaging = &stagingRegistry{}

type stagingRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (r *stagingRegistry) register(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paths == nil {
		r.paths = make(map[string]struct{})
	}
	r.paths[path] = struct{}{}
}

func (r *stagingRegistry) deregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

// CleanupStaging removes every registered in-flight staging file and returns
// how many were removed.
func CleanupStaging() int {
	globalStaging.mu.Lock()
	paths := make([]string, 0, len(globalStaging.paths))
	for p := range globalStaging.paths {
		paths = append(paths, p)
	}
	globalStaging.paths = nil
	globalStaging.mu.Unlock()

	removed := 0
	for _, p := range paths {
		if os.Remove(p) == nil {
			removed++
		}
	}
	return removed
}

// stagingPath returns a unique staging file name for base under dir.
func stagingPath(dir, base string) string {
	return filepath.Join(dir, fmt.Sprintf(".%s.%s%s", base, uuid.New().String()[:8], stagingSuffix))
}

// isStagingName reports whether name was produced by stagingPath.
func isStagingName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, stagingSuffix)
}

// RemoveStaleStaging deletes staging files left in root's staging directory
// by an interrupted run. A missing staging directory is not an error.
func RemoveStaleStaging(root, stagingDir string) ([]string, error) {
	dir := filepath.Join(root, stagingDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read staging dir %s: %w", dir, err)
	}

	var removed []string
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !isStagingName(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, p)
	}
	return removed, errors.Join(errs...)
}
