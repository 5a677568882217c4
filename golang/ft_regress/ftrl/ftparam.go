package ftrl

import (
	"log"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

//FTParam is a function train together with the flat vector of its parameters.
//Every update keeps both representations identical.
type FTParam struct {
	ft     *ftrain.FunctionTrain
	opts   *ftrain.ApproxOpts
	layout ParamLayout
	params []float64
	jitter distuv.Uniform
}

//NewFTParam creates a parameterized train of the given ranks. A nil params vector means zeros.
//The seed drives the jitter of the warm starts.
func NewFTParam(opts *ftrain.ApproxOpts, ranks []int, params []float64, seed uint64) *FTParam {
	layout := ComputeLayout(ranks, opts)
	ftp := &FTParam{
		ft:     ftrain.Zeros(opts, ranks),
		opts:   opts,
		layout: layout,
		params: make([]float64, layout.Total),
		jitter: distuv.Uniform{Min: -1, Max: 1, Src: rand.NewSource(seed)},
	}
	if params != nil {
		ftp.UpdateParams(params)
	}
	return ftp
}

func (ftp *FTParam) FT() *ftrain.FunctionTrain { return ftp.ft }
func (ftp *FTParam) Opts() *ftrain.ApproxOpts { return ftp.opts }
func (ftp *FTParam) Layout() ParamLayout { return ftp.layout }
func (ftp *FTParam) Dim() int { return ftp.layout.Dim() }
func (ftp *FTParam) NumParams() int { return ftp.layout.Total }
func (ftp *FTParam) Ranks() []int { return slices.Clone(ftp.layout.Ranks) }

//Params returns a copy of the flat parameter vector.
func (ftp *FTParam) Params() []float64 {
	return slices.Clone(ftp.params)
}

//CoreParams returns a copy of the parameters of one core.
func (ftp *FTParam) CoreParams(core int) []float64 {
	lo, hi := ftp.layout.CoreRange(core)
	return slices.Clone(ftp.params[lo:hi])
}

//UpdateParams replaces the whole parameter vector.
func (ftp *FTParam) UpdateParams(params []float64) {
	if len(params) != ftp.layout.Total {
		log.Panicf("model has %d parameters, got %d", ftp.layout.Total, len(params))
	}
	copy(ftp.params, params)
	ftp.ft.UpdateParams(ftp.params)
}

//UpdateCoreParams replaces the parameters of one core and leaves the others untouched.
func (ftp *FTParam) UpdateCoreParams(core int, params []float64) {
	lo, hi := ftp.layout.CoreRange(core)
	if len(params) != hi-lo {
		log.Panicf("core %d has %d parameters, got %d", core, hi-lo, len(params))
	}
	copy(ftp.params[lo:hi], params)
	ftp.ft.UpdateCoreParams(core, ftp.params[lo:hi])
}

//NumParamsRestricted counts the parameters beyond the thresholds.
func (ftp *FTParam) NumParamsRestricted(thresholds []int) int {
	return ftp.layout.walkRestricted(thresholds, true, nil)
}

//NumParamsInsideRestricted counts the parameters below the thresholds.
func (ftp *FTParam) NumParamsInsideRestricted(thresholds []int) int {
	return ftp.layout.walkRestricted(thresholds, false, nil)
}

func (ftp *FTParam) updateSide(params []float64, thresholds []int, outside bool) {
	if n := ftp.layout.walkRestricted(thresholds, outside, nil); n != len(params) {
		log.Panicf("restricted update expects %d parameters, got %d", n, len(params))
	}
	ftp.layout.walkRestricted(thresholds, outside, func(general, packed int) {
		ftp.params[general] = params[packed]
	})
	ftp.ft.UpdateParams(ftp.params)
}

//UpdateRestricted writes params into the functions beyond the thresholds, in storage order.
func (ftp *FTParam) UpdateRestricted(params []float64, thresholds []int) {
	ftp.updateSide(params, thresholds, true)
}

//UpdateInsideRestricted writes params into the functions below the thresholds, in storage order.
func (ftp *FTParam) UpdateInsideRestricted(params []float64, thresholds []int) {
	ftp.updateSide(params, thresholds, false)
}

//ExtractRestricted picks from a full-length vector the entries UpdateRestricted would write.
func (ftp *FTParam) ExtractRestricted(full []float64, thresholds []int) []float64 {
	return ftp.extractRestrictedInto(full, thresholds, make([]float64, ftp.NumParamsRestricted(thresholds)))
}

func (ftp *FTParam) extractRestrictedInto(full []float64, thresholds []int, dst []float64) []float64 {
	if len(full) != ftp.layout.Total {
		log.Panicf("restricted extraction expects %d values, got %d", ftp.layout.Total, len(full))
	}
	ftp.layout.walkRestricted(thresholds, true, func(general, packed int) {
		dst[packed] = full[general]
	})
	return dst
}

func (ftp *FTParam) resetWithJitter(scale float64) {
	for ind := range ftp.params {
		ftp.params[ind] = scale * ftp.jitter.Rand()
	}
}

//addTemplate adds the top-left functions of the template cores to the parameters.
//Cores whose top-left block is a single function take the constant template.
func (ftp *FTParam) addTemplate(linear, constant *ftrain.FunctionTrain) {
	dim := ftp.Dim()
	ranks := ftp.layout.Ranks
	for k := 0; k < dim; k++ {
		rows, cols := min(2, ranks[k]), min(2, ranks[k+1])
		src := linear.Cores[k]
		if rows*cols == 1 && dim > 1 {
			src = constant.Cores[k]
		}
		p := ftp.layout.PerUni[k]
		offset := ftp.layout.CoreOffset(k)
		for col := 0; col < min(cols, src.Cols); col++ {
			for row := 0; row < min(rows, src.Rows); row++ {
				dst := ftp.params[offset+(col*ranks[k]+row)*p:]
				for l, v := range src.Func(row, col) {
					dst[l] += v
				}
			}
		}
	}
	ftp.ft.UpdateParams(ftp.params)
}

//CreateFromConstant starts from jitter-sized noise plus a model equal to value.
func (ftp *FTParam) CreateFromConstant(value, jitter float64) {
	ftp.resetWithJitter(jitter)
	constant := ftrain.Constant(value, ftp.opts)
	ftp.addTemplate(constant, constant)
}

//linearFitRcond drops the singular values of the linear warm start below this fraction of the largest.
const linearFitRcond = 1e-10

//CreateFromLinearFit starts from jitter-sized noise plus the least squares affine fit of
//the samples, expressed as a rank two train. x holds len(y) points row by row.
func (ftp *FTParam) CreateFromLinearFit(x, y []float64, jitter float64) {
	dim := ftp.Dim()
	n := len(y)
	if len(x) != n*dim {
		log.Panicf("linear fit of dimension %d got %d inputs for %d labels", dim, len(x), n)
	}
	a := mat.NewDense(n, dim+1, nil)
	for s := 0; s < n; s++ {
		for k := 0; k < dim; k++ {
			a.Set(s, k, x[s*dim+k])
		}
		a.Set(s, dim, 1)
	}
	weights := mat.NewVecDense(dim+1, nil)
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		log.Printf("warning: linear warm start failed to factorize, starting from zero slopes")
	} else {
		rank := svd.Rank(linearFitRcond)
		if rank < dim+1 {
			log.Printf("warning: linear warm start is rank deficient (%d < %d), using the minimum norm fit", rank, dim+1)
		}
		if rank > 0 {
			svd.SolveVecTo(weights, mat.NewVecDense(n, slices.Clone(y)), rank)
		}
	}

	slopes := make([]float64, dim)
	offsets := make([]float64, dim)
	intercept := weights.AtVec(dim)
	for k := 0; k < dim; k++ {
		slopes[k] = weights.AtVec(k)
		offsets[k] = intercept / float64(dim)
	}

	ftp.resetWithJitter(jitter)
	ftp.addTemplate(ftrain.LinearSum(slopes, offsets, ftp.opts), ftrain.Constant(intercept, ftp.opts))
}
