package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	TierScanned
	ScanComplete
	EntrySkipped
	FilesExcluded
	BoundaryAssigned
	PlanComplete
	MoveCompleted
	MoveRejected
	MoveFailed
	HardlinkCreated
	PassComplete
	Converged
	Stalled
	LimitReached
	StagingCleaned
)

var typeNames = [...]string{
	ScanStarted:      "ScanStarted",
	TierScanned:      "TierScanned",
	ScanComplete:     "ScanComplete",
	EntrySkipped:     "EntrySkipped",
	FilesExcluded:    "FilesExcluded",
	BoundaryAssigned: "BoundaryAssigned",
	PlanComplete:     "PlanComplete",
	MoveCompleted:    "MoveCompleted",
	MoveRejected:     "MoveRejected",
	MoveFailed:       "MoveFailed",
	HardlinkCreated:  "HardlinkCreated",
	PassComplete:     "PassComplete",
	Converged:        "Converged",
	Stalled:          "Stalled",
	LimitReached:     "LimitReached",
	StagingCleaned:   "StagingCleaned",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single diagnostic record emitted by the engine.
//
// Tier and Target are tier indexes; -1 means "not applicable".
type Event struct {
	Timestamp time.Time
	Error     error
	Path      string
	Type      Type
	Tier      int
	Target    int
	Size      int64 // file size, or bytes for tier-level events
	Count     int   // file count for aggregate events
	Pass      int   // convergence pass (1-based) for mover events
}

// Emit stamps e and sends it on ch. A nil channel discards the event.
// The send blocks: diagnostic events are never dropped.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	ch <- e
}
