//go:build unix

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPriorityRange(t *testing.T) {
	require.Error(t, SetPriority(-21))
	require.Error(t, SetPriority(20))
}

func TestSetPriorityLowerIsAllowed(t *testing.T) {
	cur, err := Priority()
	require.NoError(t, err)

	// Lowering priority (raising niceness) never needs privileges.
	target := min(cur+1, 19)
	require.NoError(t, SetPriority(target))

	got, err := Priority()
	require.NoError(t, err)
	assert.Equal(t, target, got)
}
