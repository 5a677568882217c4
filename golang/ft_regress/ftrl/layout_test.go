package ftrl

import (
	"testing"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLayout(t *testing.T) {
	layout := ComputeLayout([]int{1, 2, 3, 1}, mixedOpts())

	assert.Equal(t, []int{3, 4, 2}, layout.PerUni)
	assert.Equal(t, []int{6, 24, 6}, layout.PerCore)
	assert.Equal(t, []int{0, 6, 30}, layout.Offsets)
	assert.Equal(t, 36, layout.Total)
	assert.Equal(t, 4, layout.MaxUni)
	assert.Equal(t, 24, layout.MaxCore)
	assert.Equal(t, 3, layout.MaxRank())
	assert.Equal(t, 3, layout.Dim())

	lo, hi := layout.CoreRange(1)
	assert.Equal(t, 6, lo)
	assert.Equal(t, 30, hi)
}

func TestComputeLayoutRejectsMismatchedRanks(t *testing.T) {
	require.Panics(t, func() { ComputeLayout([]int{1, 2, 1}, mixedOpts()) })
}

func TestOutsideRestriction(t *testing.T) {
	thresholds := []int{2, 1, 1}
	assert.False(t, outsideRestriction(0, 0, 1, thresholds))
	assert.True(t, outsideRestriction(0, 0, 2, thresholds))
	assert.False(t, outsideRestriction(1, 1, 0, thresholds))
	assert.True(t, outsideRestriction(1, 2, 0, thresholds))
	assert.True(t, outsideRestriction(1, 0, 1, thresholds))
	assert.False(t, outsideRestriction(2, 0, 0, thresholds))
	assert.True(t, outsideRestriction(2, 1, 0, thresholds))
}

func TestRestrictedPartition(t *testing.T) {
	opts := ftrain.UniformLegendre(3, 3, -1, 1)
	layout := ComputeLayout([]int{1, 3, 2, 1}, opts)
	thresholds := []int{2, 1, 1}

	seen := make([]int, layout.Total)
	lastPacked := -1
	outside := layout.walkRestricted(thresholds, true, func(general, packed int) {
		seen[general]++
		require.Equal(t, lastPacked+1, packed)
		lastPacked = packed
	})
	lastPacked = -1
	inside := layout.walkRestricted(thresholds, false, func(general, packed int) {
		seen[general]++
		require.Equal(t, lastPacked+1, packed)
		lastPacked = packed
	})

	assert.Equal(t, layout.Total, outside+inside)
	for general, count := range seen {
		assert.Equal(t, 1, count, "parameter %d", general)
	}
	// the block below the thresholds is a train of ranks [1, 2, 1, 1]
	assert.Equal(t, (1*2+2*1+1*1)*3, inside)
}

func TestWalkRestrictedRejectsShortThresholds(t *testing.T) {
	layout := ComputeLayout([]int{1, 2, 1}, ftrain.UniformLegendre(2, 2, -1, 1))
	require.Panics(t, func() { layout.walkRestricted([]int{1}, true, nil) })
}
