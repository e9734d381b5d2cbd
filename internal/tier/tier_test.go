package tier

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockCap(n int64) *int64 { return &n }

func TestNew_MockCapacity(t *testing.T) {
	tr, err := New(0, Config{Path: "/tier0", Target: 50, MockCapacity: mockCap(1000)})
	require.NoError(t, err)

	assert.True(t, tr.Mock())
	assert.Equal(t, int64(1000), tr.Capacity)
	assert.Equal(t, int64(500), tr.AllowedSpace)
	assert.Equal(t, int64(0), tr.Used)
	assert.Equal(t, int64(500), tr.Free)
}

func TestNew_TargetOutOfRange(t *testing.T) {
	_, err := New(0, Config{Path: "/x", Target: 101, MockCapacity: mockCap(10)})
	require.Error(t, err)

	_, err = New(0, Config{Path: "/x", Target: -1, MockCapacity: mockCap(10)})
	require.Error(t, err)
}

func TestNew_ZeroCapacity(t *testing.T) {
	_, err := New(0, Config{Path: "/x", Target: 50, MockCapacity: mockCap(0)})
	require.ErrorIs(t, err, ErrNoCapacity)
}

func TestNew_DeviceCapacity(t *testing.T) {
	dir := t.TempDir()

	tr, err := New(1, Config{Path: dir, Target: 100})
	require.NoError(t, err)

	assert.False(t, tr.Mock())
	assert.Positive(t, tr.Capacity)
	assert.Equal(t, tr.Capacity, tr.AllowedSpace)
	assert.GreaterOrEqual(t, tr.Used, int64(0))
	assert.LessOrEqual(t, tr.Used, tr.Capacity)
	assert.Equal(t, max(0, tr.AllowedSpace-tr.Used), tr.Free)
}

func TestNew_MissingPath(t *testing.T) {
	_, err := New(0, Config{Path: filepath.Join(t.TempDir(), "missing"), Target: 50})
	require.Error(t, err)
}

func TestNewSet_PreservesOrder(t *testing.T) {
	tiers, err := NewSet([]Config{
		{Path: "/fast", Target: 80, MockCapacity: mockCap(100)},
		{Path: "/slow", Target: 100, MockCapacity: mockCap(1000)},
	})
	require.NoError(t, err)
	require.Len(t, tiers, 2)

	assert.Equal(t, 0, tiers[0].Index)
	assert.Equal(t, "/fast", tiers[0].Path)
	assert.Equal(t, int64(80), tiers[0].AllowedSpace)
	assert.Equal(t, 1, tiers[1].Index)
	assert.Equal(t, int64(1000), tiers[1].AllowedSpace)
}

func TestObserve_MockClampsFree(t *testing.T) {
	tr, err := New(0, Config{Path: "/t", Target: 50, MockCapacity: mockCap(1000)})
	require.NoError(t, err)

	require.NoError(t, tr.Observe(200))
	assert.Equal(t, int64(200), tr.Used)
	assert.Equal(t, int64(300), tr.Free)

	require.NoError(t, tr.Observe(900))
	assert.Equal(t, int64(0), tr.Free, "free is clamped at zero")
}

func TestBudget(t *testing.T) {
	tr, err := New(0, Config{Path: "/t", Target: 50, MockCapacity: mockCap(1000)})
	require.NoError(t, err)
	require.NoError(t, tr.Observe(600))

	// All 600 resident bytes are movable: the whole allowance is available.
	assert.Equal(t, int64(500), tr.Budget(600))
	// 100 bytes are pinned (excluded or foreign), 500 movable.
	assert.Equal(t, int64(400), tr.Budget(500))
	// Pinned data alone exceeds the allowance.
	assert.Equal(t, int64(0), tr.Budget(0))
}

func TestBudget_EqualsFreeWithoutResidents(t *testing.T) {
	tr, err := New(0, Config{Path: "/t", Target: 50, MockCapacity: mockCap(1000)})
	require.NoError(t, err)

	assert.Equal(t, tr.Free, tr.Budget(0))
}

func TestAdmitsReserveRelease(t *testing.T) {
	tr, err := New(0, Config{Path: "/t", Target: 100, MockCapacity: mockCap(100)})
	require.NoError(t, err)

	assert.True(t, tr.Admits(100))
	assert.False(t, tr.Admits(101))

	tr.Reserve(60)
	assert.Equal(t, int64(40), tr.Free)
	assert.Equal(t, int64(60), tr.Used)
	assert.False(t, tr.Admits(41))

	tr.Release(60)
	assert.Equal(t, int64(100), tr.Free)
	assert.Equal(t, int64(0), tr.Used)
}

func TestString(t *testing.T) {
	tr, err := New(2, Config{Path: "/mnt/hdd", Target: 100, MockCapacity: mockCap(1)})
	require.NoError(t, err)
	assert.Equal(t, "tier 2 (/mnt/hdd)", tr.String())
}
