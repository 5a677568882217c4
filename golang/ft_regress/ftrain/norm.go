package ftrain

import (
	"errors"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//ErrNotOrthonormal is returned when rounding is requested for families without an orthonormal basis.
var ErrNotOrthonormal = errors.New("rounding needs orthonormal families on every dimension")

//Inner computes the L2 inner product of two trains with the same dimension and families.
func Inner(a, b *FunctionTrain) float64 {
	if a.Dim() != b.Dim() {
		log.Panicf("inner product of trains of dimensions %d and %d", a.Dim(), b.Dim())
	}
	m := []float64{1}
	for k := range a.Cores {
		ca, cb := a.Cores[k], b.Cores[k]
		next := make([]float64, ca.Cols*cb.Cols)
		for j := 0; j < ca.Cols; j++ {
			for jp := 0; jp < cb.Cols; jp++ {
				s := 0.0
				for i := 0; i < ca.Rows; i++ {
					for ip := 0; ip < cb.Rows; ip++ {
						if w := m[i*cb.Rows+ip]; w != 0 {
							s += w * ca.Family.Inner(ca.Func(i, j), cb.Func(ip, jp))
						}
					}
				}
				next[j*cb.Cols+jp] = s
			}
		}
		m = next
	}
	return m[0]
}

//Norm2 is the L2 norm of a train.
func Norm2(a *FunctionTrain) float64 {
	return math.Sqrt(math.Max(0, Inner(a, a)))
}

//Norm2Diff is the L2 norm of a - b.
func Norm2Diff(a, b *FunctionTrain) float64 {
	return math.Sqrt(math.Max(0, Inner(a, a)-2*Inner(a, b)+Inner(b, b)))
}

//coreTensor is a core stored as a row-major r x p x rn array of basis coefficients.
type coreTensor struct {
	r, p, rn int
	g        []float64
}

func tensorFromCore(core *Core) coreTensor {
	p := core.Family.NumParams()
	t := coreTensor{r: core.Rows, p: p, rn: core.Cols, g: make([]float64, len(core.Params))}
	for j := 0; j < core.Cols; j++ {
		for i := 0; i < core.Rows; i++ {
			for l := 0; l < p; l++ {
				t.g[(i*p+l)*t.rn+j] = core.Params[(j*core.Rows+i)*p+l]
			}
		}
	}
	return t
}

func (t coreTensor) toCore(family Family) *Core {
	core := newCore(t.r, t.rn, family)
	for j := 0; j < t.rn; j++ {
		for i := 0; i < t.r; i++ {
			for l := 0; l < t.p; l++ {
				core.Params[(j*t.r+i)*t.p+l] = t.g[(i*t.p+l)*t.rn+j]
			}
		}
	}
	return core
}

func denseData(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = m.At(i, j)
		}
	}
	return out
}

//Round compresses the train to the smallest ranks that reproduce it within the
//relative tolerance tol. It needs orthonormal families.
func (ft *FunctionTrain) Round(tol float64) (*FunctionTrain, error) {
	if !ft.opts.Orthonormal() {
		return nil, ErrNotOrthonormal
	}
	d := ft.Dim()
	if d == 1 {
		return ft.Copy(), nil
	}

	cores := make([]coreTensor, d)
	for k, core := range ft.Cores {
		cores[k] = tensorFromCore(core)
	}

	// right to left orthogonalisation
	for k := d - 1; k > 0; k-- {
		cur := cores[k]
		var svd mat.SVD
		if !svd.Factorize(mat.NewDense(cur.r, cur.p*cur.rn, cur.g), mat.SVDThin) {
			return nil, errors.New("svd failed during orthogonalisation")
		}
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		values := svd.Values(nil)
		q := len(values)
		for c := 0; c < q; c++ {
			col := u.ColView(c).(*mat.VecDense)
			col.ScaleVec(values[c], col)
		}

		var vt mat.Dense
		vt.CloneFrom(v.T())
		cores[k] = coreTensor{r: q, p: cur.p, rn: cur.rn, g: denseData(&vt)}

		prev := cores[k-1]
		var prod mat.Dense
		prod.Mul(mat.NewDense(prev.r*prev.p, prev.rn, prev.g), &u)
		cores[k-1] = coreTensor{r: prev.r, p: prev.p, rn: q, g: denseData(&prod)}
	}

	norm := floats.Norm(cores[0].g, 2)
	delta := tol / math.Sqrt(float64(d-1)) * norm

	// left to right truncation
	for k := 0; k < d-1; k++ {
		cur := cores[k]
		var svd mat.SVD
		if !svd.Factorize(mat.NewDense(cur.r*cur.p, cur.rn, cur.g), mat.SVDThin) {
			return nil, errors.New("svd failed during truncation")
		}
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		values := svd.Values(nil)
		rank := truncationRank(values, delta)

		cores[k] = coreTensor{r: cur.r, p: cur.p, rn: rank, g: denseData(u.Slice(0, cur.r*cur.p, 0, rank).(*mat.Dense))}

		sv := mat.NewDense(rank, cur.rn, nil)
		for i := 0; i < rank; i++ {
			for j := 0; j < cur.rn; j++ {
				sv.Set(i, j, values[i]*v.At(j, i))
			}
		}
		next := cores[k+1]
		var prod mat.Dense
		prod.Mul(sv, mat.NewDense(next.r, next.p*next.rn, next.g))
		cores[k+1] = coreTensor{r: rank, p: next.p, rn: next.rn, g: denseData(&prod)}
	}

	out := &FunctionTrain{Ranks: make([]int, d+1), Cores: make([]*Core, d), opts: ft.opts}
	for k := range cores {
		out.Cores[k] = cores[k].toCore(ft.Cores[k].Family)
		out.Ranks[k] = cores[k].r
	}
	out.Ranks[d] = 1
	return out, nil
}

//truncationRank is the smallest rank whose discarded singular values have a norm below delta.
func truncationRank(values []float64, delta float64) int {
	tail := 0.0
	rank := len(values)
	for rank > 1 {
		s := values[rank-1]
		if math.Sqrt(tail+s*s) > delta {
			break
		}
		tail += s * s
		rank--
	}
	return rank
}
