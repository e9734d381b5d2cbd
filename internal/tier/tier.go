// Package tier models storage tiers and the files that live on them.
package tier

import (
	"errors"
	"fmt"
)

// ErrNoCapacity is returned when a tier's capacity cannot be determined or is zero.
var ErrNoCapacity = errors.New("tier has no capacity")

// Config describes one configured storage location.
type Config struct {
	// MockCapacity overrides the detected device capacity. Test-only.
	MockCapacity *int64
	Path         string
	Target       int // 0..100, percent of capacity reserved for this tier
}

// Tier is the runtime capacity tracker for one storage location.
//
// Free is read by the planner and mutated only by the single-threaded mover.
// It is never accessed concurrently.
type Tier struct {
	Path         string
	Index        int
	Target       int
	Capacity     int64
	AllowedSpace int64
	Used         int64
	Free         int64
	mock         bool
}

// New builds the runtime tier for cfg. Capacity comes from MockCapacity when
// set, otherwise from the filesystem holding cfg.Path.
func New(index int, cfg Config) (*Tier, error) {
	if cfg.Target < 0 || cfg.Target > 100 {
		return nil, fmt.Errorf("tier %d: target %d out of range 0..100", index, cfg.Target)
	}

	t := &Tier{
		Path:   cfg.Path,
		Index:  index,
		Target: cfg.Target,
	}

	if cfg.MockCapacity != nil {
		t.mock = true
		t.Capacity = *cfg.MockCapacity
	} else {
		total, used, err := deviceUsage(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("tier %d: probe %s: %w", index, cfg.Path, err)
		}
		t.Capacity = total
		t.Used = used
	}

	if t.Capacity <= 0 {
		return nil, fmt.Errorf("tier %d (%s): %w", index, cfg.Path, ErrNoCapacity)
	}

	t.AllowedSpace = t.Capacity * int64(t.Target) / 100
	t.recompute()
	return t, nil
}

// NewSet builds one Tier per config, in configuration order.
func NewSet(cfgs []Config) ([]*Tier, error) {
	tiers := make([]*Tier, 0, len(cfgs))
	for i, cfg := range cfgs {
		t, err := New(i, cfg)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

// Mock reports whether the tier's capacity is a configured override.
func (t *Tier) Mock() bool { return t.mock }

// Observe records the scanned byte total resident on this tier. Mock tiers
// have no device to measure, so the scanned total becomes their usage.
// Device-backed tiers are re-probed.
func (t *Tier) Observe(scannedBytes int64) error {
	if t.mock {
		t.Used = scannedBytes
		t.recompute()
		return nil
	}
	_, used, err := deviceUsage(t.Path)
	if err != nil {
		return fmt.Errorf("tier %d: probe %s: %w", t.Index, t.Path, err)
	}
	t.Used = used
	t.recompute()
	return nil
}

// Budget returns the bytes the planner may assign to this tier when
// residentMovable bytes of movable files currently live on it: every byte
// the tier allows except what non-movable data already occupies.
func (t *Tier) Budget(residentMovable int64) int64 {
	return max(0, t.AllowedSpace-(t.Used-residentMovable))
}

// Admits reports whether a file of size bytes passes the admission check.
func (t *Tier) Admits(size int64) bool {
	return t.Free >= size
}

// Reserve accounts for size bytes arriving on the tier.
func (t *Tier) Reserve(size int64) {
	t.Used += size
	t.Free -= size
}

// Release accounts for size bytes leaving the tier.
func (t *Tier) Release(size int64) {
	t.Used -= size
	t.Free += size
}

func (t *Tier) recompute() {
	t.Free = max(0, t.AllowedSpace-t.Used)
}

func (t *Tier) String() string {
	return fmt.Sprintf("tier %d (%s)", t.Index, t.Path)
}
