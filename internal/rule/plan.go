package rule

import (
	"cmp"
	"slices"
	"strings"

	"github.com/bamsammich/tiers/internal/tier"
)

// FolderPlan applies a rule to every file whose path contains PathPrefix.
type FolderPlan struct {
	Rule       Rule
	PathPrefix string
	Priority   int // higher is evaluated first
	Reverse    bool
}

// Matches reports whether any alias of f contains the plan's prefix,
// unanchored and case-insensitive.
func (p FolderPlan) Matches(f tier.FileEntry) bool {
	prefix := strings.ToLower(p.PathPrefix)
	for _, path := range f.Paths {
		if strings.Contains(strings.ToLower(path), prefix) {
			return true
		}
	}
	return false
}

// Score returns the rule's score for f, negated when the plan is reversed.
func (p FolderPlan) Score(f tier.FileEntry) int64 {
	return negateIf(p.Rule.Score(f), p.Reverse)
}

// Ignores reports whether the plan is an exclusion plan.
func (p FolderPlan) Ignores() bool {
	return p.Rule != nil && KindOf(p.Rule) == KindIgnore
}

// SortByPriority returns plans ordered by descending priority. Plans with
// equal priority keep their configured order.
func SortByPriority(plans []FolderPlan) []FolderPlan {
	out := slices.Clone(plans)
	slices.SortStableFunc(out, func(a, b FolderPlan) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return out
}

func negateIf(v int64, neg bool) int64 {
	if neg {
		return -v
	}
	return v
}
