package ftrl

import (
	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"golang.org/x/exp/rand"
)

//generateGridData samples f on an n x n grid of [lb, ub]^2.
func generateGridData(n int, lb, ub float64, f func(x, y float64) float64) (x, y []float64) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			u := lb + (ub-lb)*float64(i)/float64(n-1)
			v := lb + (ub-lb)*float64(j)/float64(n-1)
			x = append(x, u, v)
			y = append(y, f(u, v))
		}
	}
	return
}

//generateRandomData samples f at n uniform points of [lb, ub]^dim.
func generateRandomData(n, dim int, lb, ub float64, seed uint64, f func([]float64) float64) (x, y []float64) {
	rng := rand.New(rand.NewSource(seed))
	x = make([]float64, n*dim)
	y = make([]float64, n)
	for s := 0; s < n; s++ {
		pt := x[s*dim : (s+1)*dim]
		for k := range pt {
			pt[k] = lb + (ub-lb)*rng.Float64()
		}
		y[s] = f(pt)
	}
	return
}

func randomVector(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for ind := range out {
		out[ind] = 2*rng.Float64() - 1
	}
	return out
}

func mixedOpts() *ftrain.ApproxOpts {
	return ftrain.NewApproxOpts(ftrain.NewLegendre(3, -1, 1), ftrain.NewKernel(4, -1, 1, 0.5), ftrain.NewLegendre(2, -1, 1))
}

func finiteDifference(f func([]float64) float64, params []float64, eps float64) []float64 {
	grad := make([]float64, len(params))
	work := append([]float64(nil), params...)
	for ind := range params {
		work[ind] = params[ind] + eps
		up := f(work)
		work[ind] = params[ind] - eps
		down := f(work)
		work[ind] = params[ind]
		grad[ind] = (up - down) / (2 * eps)
	}
	return grad
}
