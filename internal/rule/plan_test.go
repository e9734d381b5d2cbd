package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/tiers/internal/tier"
)

func TestFolderPlan_Matches(t *testing.T) {
	p := FolderPlan{PathPrefix: "/Archive", Rule: Ignore{}}

	assert.True(t, p.Matches(entry("/mnt/fast/archive/x", 1)), "case-insensitive")
	assert.True(t, p.Matches(entry("/mnt/fast/old/archive", 1)), "unanchored substring")
	assert.True(t, p.Matches(entry("/mnt/fast/archived/x", 1)), "prefix is a plain substring")
	assert.False(t, p.Matches(entry("/mnt/fast/media/x", 1)))
}

func TestFolderPlan_MatchesAnyAlias(t *testing.T) {
	p := FolderPlan{PathPrefix: "/keep/", Rule: Size{}}
	f := tier.FileEntry{Paths: []string{"/t/media/a", "/t/keep/a"}}

	assert.True(t, p.Matches(f))
}

func TestFolderPlan_ScoreReverse(t *testing.T) {
	f := entry("/t/a", 4096)

	assert.Equal(t, int64(4), FolderPlan{Rule: Size{}}.Score(f))
	assert.Equal(t, int64(-4), FolderPlan{Rule: Size{}, Reverse: true}.Score(f))

	h := Name{}.Score(f)
	assert.Equal(t, -h, FolderPlan{Rule: Name{}, Reverse: true}.Score(f))
	assert.Equal(t, int64(-200), FolderPlan{Rule: Time{}, Reverse: true}.Score(tier.FileEntry{ModifyTime: time.Unix(200, 0)}))
}

func TestFolderPlan_Ignores(t *testing.T) {
	assert.True(t, FolderPlan{Rule: Ignore{}}.Ignores())
	assert.False(t, FolderPlan{Rule: Size{}}.Ignores())
	assert.False(t, FolderPlan{}.Ignores())
}

func TestSortByPriority(t *testing.T) {
	plans := []FolderPlan{
		{PathPrefix: "low", Priority: 1},
		{PathPrefix: "high", Priority: 100},
		{PathPrefix: "mid-a", Priority: 50},
		{PathPrefix: "mid-b", Priority: 50},
	}

	sorted := SortByPriority(plans)

	var got []string
	for _, p := range sorted {
		got = append(got, p.PathPrefix)
	}
	assert.Equal(t, []string{"high", "mid-a", "mid-b", "low"}, got)
	assert.Equal(t, "low", plans[0].PathPrefix, "input is not reordered")
}
