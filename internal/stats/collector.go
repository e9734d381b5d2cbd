package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks rebalancing statistics using lock-free atomic counters.
// Scanner tasks update it concurrently; planner and mover updates are
// single-threaded.
type Collector struct {
	startTime        time.Time
	filesScanned     atomic.Int64
	bytesScanned     atomic.Int64
	entriesSkipped   atomic.Int64
	filesExcluded    atomic.Int64
	filesMoved       atomic.Int64
	bytesMoved       atomic.Int64
	movesRejected    atomic.Int64
	movesFailed      atomic.Int64
	hardlinksCreated atomic.Int64
	passes           atomic.Int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned     int64
	BytesScanned     int64
	EntriesSkipped   int64
	FilesExcluded    int64
	FilesMoved       int64
	BytesMoved       int64
	MovesRejected    int64
	MovesFailed      int64
	HardlinksCreated int64
	Passes           int64
	Elapsed          time.Duration
}

func (c *Collector) AddFilesScanned(n int64)     { c.filesScanned.Add(n) }
func (c *Collector) AddBytesScanned(n int64)     { c.bytesScanned.Add(n) }
func (c *Collector) AddEntriesSkipped(n int64)   { c.entriesSkipped.Add(n) }
func (c *Collector) AddFilesExcluded(n int64)    { c.filesExcluded.Add(n) }
func (c *Collector) AddFilesMoved(n int64)       { c.filesMoved.Add(n) }
func (c *Collector) AddBytesMoved(n int64)       { c.bytesMoved.Add(n) }
func (c *Collector) AddMovesRejected(n int64)    { c.movesRejected.Add(n) }
func (c *Collector) AddMovesFailed(n int64)      { c.movesFailed.Add(n) }
func (c *Collector) AddHardlinksCreated(n int64) { c.hardlinksCreated.Add(n) }
func (c *Collector) AddPasses(n int64)           { c.passes.Add(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned:     c.filesScanned.Load(),
		BytesScanned:     c.bytesScanned.Load(),
		EntriesSkipped:   c.entriesSkipped.Load(),
		FilesExcluded:    c.filesExcluded.Load(),
		FilesMoved:       c.filesMoved.Load(),
		BytesMoved:       c.bytesMoved.Load(),
		MovesRejected:    c.movesRejected.Load(),
		MovesFailed:      c.movesFailed.Load(),
		HardlinksCreated: c.hardlinksCreated.Load(),
		Passes:           c.passes.Load(),
		Elapsed:          c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d skipped=%d excluded=%d moved=%d bytes=%d rejected=%d failed=%d hardlinks=%d passes=%d",
		s.FilesScanned, s.EntriesSkipped, s.FilesExcluded, s.FilesMoved,
		s.BytesMoved, s.MovesRejected, s.MovesFailed, s.HardlinksCreated, s.Passes,
	)
}
