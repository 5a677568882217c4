package ftrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosenbrock(params, grad []float64) float64 {
	a, b := params[0], params[1]
	if grad != nil {
		grad[0] = -2*(1-a) - 400*a*(b-a*a)
		grad[1] = 200 * (b - a*a)
	}
	return (1-a)*(1-a) + 100*(b-a*a)*(b-a*a)
}

func TestOptimizerMinimizesRosenbrock(t *testing.T) {
	for _, method := range []Method{LBFGS, BFGS} {
		x := []float64{-1.2, 1}
		val, err := NewOptimizer(method).Minimize(rosenbrock, x)
		require.NoError(t, err)
		assert.Less(t, val, 1e-10)
		assert.InDeltaSlice(t, []float64{1, 1}, x, 1e-4)
	}
}

func TestOptimizerReportsEarlyStop(t *testing.T) {
	opt := NewOptimizer(GradientDescent)
	opt.MaxIter = 3
	x := []float64{-1.2, 1}
	start := rosenbrock(x, nil)
	val, err := opt.Minimize(rosenbrock, x)
	assert.ErrorIs(t, err, ErrNotConverged)
	assert.LessOrEqual(t, val, start)
	assert.Equal(t, val, rosenbrock(x, nil))
}

func TestOptimizerWithoutParameters(t *testing.T) {
	calls := 0
	val, err := NewOptimizer(LBFGS).Minimize(func(_, _ []float64) float64 {
		calls++
		return 2.5
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, val)
	assert.Equal(t, 1, calls)
}

func TestParseMethod(t *testing.T) {
	for name, expected := range map[string]Method{"": LBFGS, "lbfgs": LBFGS, "bfgs": BFGS, "cg": CG, "gd": GradientDescent} {
		method, err := ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, expected, method)
	}
	_, err := ParseMethod("newton")
	assert.Error(t, err)
}
