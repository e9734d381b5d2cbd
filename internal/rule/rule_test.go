package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/tiers/internal/tier"
)

func entry(path string, size int64) tier.FileEntry {
	return tier.FileEntry{Paths: []string{path}, Size: size}
}

func TestSize_Score(t *testing.T) {
	f := entry("/t/a", 10*1024+1023)

	assert.Equal(t, int64(10), Size{}.Score(f), "integer KiB division")
	assert.Equal(t, int64(0), Size{}.Score(entry("/t/b", 1023)))
	assert.False(t, Size{}.Exclude(f))
}

func TestTime_Score(t *testing.T) {
	f := tier.FileEntry{
		Paths:      []string{"/t/a"},
		AccessTime: time.Unix(100, 999),
		ModifyTime: time.Unix(200, 0),
		ChangeTime: time.Unix(300, 0),
	}

	assert.Equal(t, int64(100), Time{Field: AccessTime}.Score(f))
	assert.Equal(t, int64(200), Time{Field: ModifyTime}.Score(f))
	assert.Equal(t, int64(300), Time{Field: ChangeTime}.Score(f))
	assert.False(t, Time{}.Exclude(f))
}

func TestName_PatternScore(t *testing.T) {
	r := Name{Pattern: "Sample"}

	assert.Equal(t, int64(1), r.Score(entry("/t/movies/SAMPLE-clip.mkv", 1)))
	assert.Equal(t, int64(1), r.Score(entry("/t/movies/the.sample.mkv", 1)))
	assert.Equal(t, int64(0), r.Score(entry("/t/sample/movie.mkv", 1)), "only the file name is matched")
	assert.False(t, r.Exclude(entry("/t/x", 1)))
}

func TestName_HashScoreIsStable(t *testing.T) {
	a := entry("/t0/dir/report.pdf", 1)
	b := entry("/t1/other/report.pdf", 1)
	c := entry("/t0/dir/invoice.pdf", 1)

	r := Name{}
	assert.Equal(t, r.Score(a), r.Score(b), "same name, same score")
	assert.NotEqual(t, r.Score(a), r.Score(c))
	assert.GreaterOrEqual(t, r.Score(a), int64(0))
}

func TestIgnore(t *testing.T) {
	f := entry("/t/a", 4096)

	assert.Equal(t, int64(0), Ignore{}.Score(f))
	assert.True(t, Ignore{}.Exclude(f))
	assert.Equal(t, KindIgnore, KindOf(Ignore{}))
}

func TestParse(t *testing.T) {
	tests := []struct {
		ruleType  string
		pattern   string
		timeField string
		want      Rule
	}{
		{ruleType: "size", want: Size{}},
		{ruleType: "SIZE", want: Size{}},
		{ruleType: "time", want: Time{Field: ModifyTime}},
		{ruleType: "time", timeField: "Access", want: Time{Field: AccessTime}},
		{ruleType: "time", timeField: "change", want: Time{Field: ChangeTime}},
		{ruleType: "name", pattern: "iso", want: Name{Pattern: "iso"}},
		{ruleType: "name", want: Name{}},
		{ruleType: " Ignore ", want: Ignore{}},
	}

	for _, tt := range tests {
		t.Run(tt.ruleType+"/"+tt.timeField, func(t *testing.T) {
			got, err := Parse(tt.ruleType, tt.pattern, tt.timeField)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("random", "", "")
	require.ErrorIs(t, err, ErrUnknownRule)

	_, err = Parse("time", "", "birth")
	require.ErrorIs(t, err, ErrUnknownTimeField)
}

func TestTimeFieldString(t *testing.T) {
	assert.Equal(t, "access", AccessTime.String())
	assert.Equal(t, "modify", ModifyTime.String())
	assert.Equal(t, "change", ChangeTime.String())
}
