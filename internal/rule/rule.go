// Package rule scores and excludes files for placement ordering.
//
// The rule set is closed: Size, Time, Name and Ignore are the only
// implementations, and the unexported kind method keeps it that way.
package rule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/bamsammich/tiers/internal/tier"
)

var (
	ErrUnknownRule      = errors.New("unknown rule type")
	ErrUnknownTimeField = errors.New("unknown time type")
)

// Kind names a rule variant.
type Kind string

const (
	KindSize   Kind = "size"
	KindTime   Kind = "time"
	KindName   Kind = "name"
	KindIgnore Kind = "ignore"
)

// Rule orders files within a folder plan. Lower scores land on earlier tiers.
// Reversal is a property of the FolderPlan, not of the rule.
type Rule interface {
	Score(f tier.FileEntry) int64
	// Exclude reports whether the file must never be moved.
	Exclude(f tier.FileEntry) bool
	kind() Kind
}

// KindOf returns the variant of r.
func KindOf(r Rule) Kind { return r.kind() }

// TimeField selects which timestamp a Time rule scores on.
type TimeField int

const (
	ModifyTime TimeField = iota
	AccessTime
	ChangeTime
)

func (tf TimeField) String() string {
	switch tf {
	case AccessTime:
		return "access"
	case ChangeTime:
		return "change"
	default:
		return "modify"
	}
}

// ParseTimeField maps "access", "modify" or "change" (case-insensitive) to a
// TimeField. The empty string means modify.
func ParseTimeField(s string) (TimeField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "modify":
		return ModifyTime, nil
	case "access":
		return AccessTime, nil
	case "change":
		return ChangeTime, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimeField, s)
	}
}

// Size scores by size in KiB.
type Size struct{}

func (Size) Score(f tier.FileEntry) int64 {
	return f.Size / 1024
}

func (Size) Exclude(tier.FileEntry) bool { return false }
func (Size) kind() Kind                 { return KindSize }

// Time scores by one of the file's timestamps in epoch seconds.
type Time struct {
	Field TimeField
}

func (r Time) Score(f tier.FileEntry) int64 {
	switch r.Field {
	case AccessTime:
		return f.AccessTime.Unix()
	case ChangeTime:
		return f.ChangeTime.Unix()
	default:
		return f.ModifyTime.Unix()
	}
}

func (Time) Exclude(tier.FileEntry) bool { return false }
func (Time) kind() Kind                 { return KindTime }

// Name scores 1 when the file name contains Pattern (case-insensitive) and 0
// otherwise. Without a pattern it scores a stable hash of the file name,
// which spreads files deterministically across tiers.
type Name struct {
	Pattern string
}

func (r Name) Score(f tier.FileEntry) int64 {
	name := f.Name()
	if r.Pattern != "" {
		if strings.Contains(strings.ToLower(name), strings.ToLower(r.Pattern)) {
			return 1
		}
		return 0
	}
	// Shifted to stay non-negative so a reversed plan cannot overflow.
	return int64(xxhash.Sum64String(name) >> 1)
}

func (Name) Exclude(tier.FileEntry) bool { return false }
func (Name) kind() Kind                 { return KindName }

// Ignore pins matching files in place. Its score is never used.
type Ignore struct{}

func (Ignore) Score(tier.FileEntry) int64  { return 0 }
func (Ignore) Exclude(tier.FileEntry) bool { return true }
func (Ignore) kind() Kind                  { return KindIgnore }

// Parse builds a rule from its configured type name. pattern applies to name
// rules and timeField to time rules.
func Parse(ruleType, pattern, timeField string) (Rule, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(ruleType))) {
	case KindSize:
		return Size{}, nil
	case KindTime:
		tf, err := ParseTimeField(timeField)
		if err != nil {
			return nil, err
		}
		return Time{Field: tf}, nil
	case KindName:
		return Name{Pattern: pattern}, nil
	case KindIgnore:
		return Ignore{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, ruleType)
	}
}
