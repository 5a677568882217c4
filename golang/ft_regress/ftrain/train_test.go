package ftrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func randomParams(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for ind := range out {
		out[ind] = 2*rng.Float64() - 1
	}
	return out
}

func randomPoints(n, dim int, lb, ub float64, seed uint64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n*dim)
	for ind := range out {
		out[ind] = lb + (ub-lb)*rng.Float64()
	}
	return out
}

func TestConstantTrain(t *testing.T) {
	opts := UniformLegendre(3, 4, -1, 1)
	ft := Constant(2.5, opts)
	assert.Equal(t, []int{1, 1, 1, 1}, ft.Ranks)
	for _, x := range [][]float64{{0, 0, 0}, {-1, 0.5, 0.9}, {0.3, -0.7, 1}} {
		assert.InDelta(t, 2.5, ft.Eval(x), 1e-12)
	}
}

func TestLinearSumTrain(t *testing.T) {
	opts := UniformLegendre(3, 3, -1, 1)
	slopes := []float64{1, -2, 0.5}
	offsets := []float64{0.1, 0.2, 0.3}
	ft := LinearSum(slopes, offsets, opts)
	assert.Equal(t, []int{1, 2, 2, 1}, ft.Ranks)

	x := randomPoints(20, 3, -1, 1, 3)
	values := ft.EvalMany(x, 20, nil)
	for s := 0; s < 20; s++ {
		expected := 0.6
		for k := 0; k < 3; k++ {
			expected += slopes[k] * x[s*3+k]
		}
		assert.InDelta(t, expected, values[s], 1e-12)
	}
}

func TestLinearSumOneDimension(t *testing.T) {
	ft := LinearSum([]float64{3}, []float64{-1}, UniformLegendre(1, 2, 0, 2))
	assert.Equal(t, []int{1, 1}, ft.Ranks)
	assert.InDelta(t, 2.0, ft.Eval([]float64{1}), 1e-12)
}

func TestParamsRoundTrip(t *testing.T) {
	opts := NewApproxOpts(NewLegendre(3, -1, 1), NewKernel(4, -1, 1, 0.3), NewLegendre(2, 0, 1))
	ft := Zeros(opts, []int{1, 2, 3, 1})
	assert.Equal(t, 2*3+2*3*4+3*2, ft.NumParams())

	params := randomParams(ft.NumParams(), 5)
	ft.UpdateParams(params)
	assert.Equal(t, params, ft.Params(nil))

	ft.UpdateCoreParams(1, make([]float64, ft.CoreNumParams(1)))
	got := ft.Params(nil)
	assert.Equal(t, params[:6], got[:6])
	assert.Equal(t, make([]float64, 24), got[6:30])
	assert.Equal(t, params[30:], got[30:])
}

func TestCopyIsDeep(t *testing.T) {
	opts := UniformLegendre(2, 3, -1, 1)
	ft := Zeros(opts, []int{1, 2, 1})
	ft.UpdateParams(randomParams(ft.NumParams(), 8))
	cp := ft.Copy()
	before := ft.Eval([]float64{0.2, 0.4})
	cp.UpdateParams(make([]float64, cp.NumParams()))
	assert.Equal(t, before, ft.Eval([]float64{0.2, 0.4}))
	assert.Equal(t, 0.0, cp.Eval([]float64{0.2, 0.4}))
}

func TestCoreFuncIsColumnMajor(t *testing.T) {
	core := newCore(2, 3, NewLegendre(2, -1, 1))
	for ind := range core.Params {
		core.Params[ind] = float64(ind)
	}
	assert.Equal(t, []float64{6, 7}, core.Func(1, 1))
	assert.Equal(t, []float64{8, 9}, core.Func(0, 2))
}

func TestZerosRejectsBadRanks(t *testing.T) {
	opts := UniformLegendre(2, 3, -1, 1)
	require.Panics(t, func() { Zeros(opts, []int{1, 2}) })
	require.Panics(t, func() { Zeros(opts, []int{2, 2, 1}) })
	require.Panics(t, func() { Zeros(opts, []int{1, 0, 1}) })
}
