package ftrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(s *CoreSweep) []int {
	var out []int
	for core, ok := s.Next(); ok; core, ok = s.Next() {
		out = append(out, core)
	}
	return out
}

func TestCoreSweep(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, collect(NewCoreSweep(0, 4, 1)))
	assert.Equal(t, []int{1, 3, 5}, collect(NewCoreSweep(1, 6, 2)))
	assert.Equal(t, []int{3, 2, 1}, collect(NewCoreSweep(3, 0, -1)))
	assert.Empty(t, collect(NewCoreSweep(2, 2, 1)))
	assert.Equal(t, []int{0, 1, 4, 2}, collect(NewCoreSweep(0, 2, 1).Then(5, 5, 1).Then(4, 0, -2)))

	assert.Equal(t, 4, NewCoreSweep(0, 4, 1).Len())
	assert.Equal(t, 3, NewCoreSweep(1, 6, 2).Len())
	assert.Equal(t, 3, NewCoreSweep(3, 0, -1).Len())
	assert.Equal(t, 0, NewCoreSweep(5, 1, 1).Len())
	assert.Equal(t, 6, alsSweepOrder(4).Len())
}

func TestALSSweepOrder(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3, 2, 1}, collect(alsSweepOrder(4)))
	assert.Equal(t, []int{0, 1}, collect(alsSweepOrder(2)))
	assert.Equal(t, []int{0}, collect(alsSweepOrder(1)))
}
