package ftrain

import (
	"log"

	"gonum.org/v1/gonum/floats"
)

//GradScratch holds the per-sample buffers of the gradient evaluations.
//It is sized from the ranks of one train and can be reused for every sample.
type GradScratch struct {
	vals  [][]float64
	fgrad [][]float64
	left  [][]float64
	right [][]float64
}

//NewGradScratch allocates the buffers needed to differentiate ft.
func NewGradScratch(ft *FunctionTrain) *GradScratch {
	d := ft.Dim()
	scratch := &GradScratch{
		vals:  make([][]float64, d),
		fgrad: make([][]float64, d),
		left:  make([][]float64, d+1),
		right: make([][]float64, d),
	}
	for k, core := range ft.Cores {
		scratch.vals[k] = make([]float64, core.Rows*core.Cols)
		scratch.fgrad[k] = make([]float64, core.NumParams())
		scratch.left[k] = make([]float64, core.Rows)
		scratch.right[k] = make([]float64, core.Cols)
	}
	scratch.left[d] = make([]float64, 1)
	return scratch
}

//RunningTotal stores, for every sample, the product of a run of consecutive cores.
type RunningTotal struct {
	N, Stride, Width int
	Vals             []float64
}

//NewRunningTotal allocates running totals for n samples of at most stride entries each.
func NewRunningTotal(n, stride int) *RunningTotal {
	return &RunningTotal{N: n, Stride: stride, Vals: make([]float64, n*stride)}
}

//Row returns the running product of sample s.
func (rt *RunningTotal) Row(s int) []float64 {
	return rt.Vals[s*rt.Stride : s*rt.Stride+rt.Width]
}

//Restart clears the running products.
func (rt *RunningTotal) Restart() {
	for ind := range rt.Vals {
		rt.Vals[ind] = 0
	}
	rt.Width = 0
}

//coreValues evaluates every function of core k at x. When withGrad is set the parameter
//gradients are stored as well; a non nil basis row is used for linear families.
func (ft *FunctionTrain) coreValues(k int, x float64, basis []float64, scratch *GradScratch, withGrad bool) {
	core := ft.Cores[k]
	p := core.Family.NumParams()
	vals := scratch.vals[k]
	for ind := range vals {
		params := core.Params[ind*p : (ind+1)*p]
		switch {
		case basis != nil:
			vals[ind] = floats.Dot(params, basis)
		case withGrad:
			vals[ind] = core.Family.ParamGrad(params, x, scratch.fgrad[k][ind*p:(ind+1)*p])
		default:
			vals[ind] = core.Family.Eval(params, x)
		}
	}
}

//coreGrad writes left_i * right_j * df_ij/dparams for every function of core k into dst.
func (ft *FunctionTrain) coreGrad(k int, left, right, basis []float64, scratch *GradScratch, dst []float64) {
	core := ft.Cores[k]
	p := core.Family.NumParams()
	for j := 0; j < core.Cols; j++ {
		for i := 0; i < core.Rows; i++ {
			ind := j*core.Rows + i
			w := left[i] * right[j]
			out := dst[ind*p : (ind+1)*p]
			src := basis
			if src == nil {
				src = scratch.fgrad[k][ind*p : (ind+1)*p]
			}
			for l := range out {
				out[l] = w * src[l]
			}
		}
	}
}

//sweep multiplies the evaluated cores from the left and, if needed, from the right.
func (ft *FunctionTrain) sweep(scratch *GradScratch, withRight bool) float64 {
	d := ft.Dim()
	scratch.left[0][0] = 1
	for k, core := range ft.Cores {
		rowTimesMatrix(scratch.left[k], scratch.vals[k], core.Rows, core.Cols, scratch.left[k+1])
	}
	if withRight {
		scratch.right[d-1][0] = 1
		for k := d - 1; k > 0; k-- {
			core := ft.Cores[k]
			matrixTimesColumn(scratch.vals[k], core.Rows, core.Cols, scratch.right[k], scratch.right[k-1])
		}
	}
	return scratch.left[d][0]
}

func (ft *FunctionTrain) paramGradEval(x []float64, n int, basis [][]float64, scratch *GradScratch, evals, grads []float64) {
	d := ft.Dim()
	total := ft.NumParams()
	withGrad := grads != nil
	for s := 0; s < n; s++ {
		pt := x[s*d : (s+1)*d]
		for k := range ft.Cores {
			var row []float64
			if basis != nil {
				p := ft.Cores[k].Family.NumParams()
				row = basis[k][s*p : (s+1)*p]
			}
			ft.coreValues(k, pt[k], row, scratch, withGrad)
		}
		evals[s] = ft.sweep(scratch, withGrad)
		if !withGrad {
			continue
		}
		offset := s * total
		for k, core := range ft.Cores {
			var row []float64
			if basis != nil {
				p := core.Family.NumParams()
				row = basis[k][s*p : (s+1)*p]
			}
			ft.coreGrad(k, scratch.left[k], scratch.right[k], row, scratch, grads[offset:offset+core.NumParams()])
			offset += core.NumParams()
		}
	}
}

//ParamGradEval evaluates the train at n points stored row by row in x. When grads is not nil
//the gradient with respect to all parameters of sample s is stored in grads[s*NumParams():].
func (ft *FunctionTrain) ParamGradEval(x []float64, n int, scratch *GradScratch, evals, grads []float64) {
	ft.paramGradEval(x, n, nil, scratch, evals, grads)
}

//LinParamGradEval is ParamGradEval for trains whose families are linear in their parameters.
//basis[k] holds the n x p basis values of dimension k for every sample.
func (ft *FunctionTrain) LinParamGradEval(x []float64, n int, basis [][]float64, scratch *GradScratch, evals, grads []float64) {
	ft.paramGradEval(x, n, basis, scratch, evals, grads)
}

//CorePrePostRun stores for every sample the product of the cores before core into left
//and the product of the cores after core into right.
func (ft *FunctionTrain) CorePrePostRun(core int, x []float64, n int, left, right *RunningTotal, scratch *GradScratch) {
	d := ft.Dim()
	left.Width = ft.Ranks[core]
	right.Width = ft.Ranks[core+1]
	for s := 0; s < n; s++ {
		pt := x[s*d : (s+1)*d]
		scratch.left[0][0] = 1
		for k := 0; k < core; k++ {
			ft.coreValues(k, pt[k], nil, scratch, false)
			c := ft.Cores[k]
			rowTimesMatrix(scratch.left[k], scratch.vals[k], c.Rows, c.Cols, scratch.left[k+1])
		}
		copy(left.Row(s), scratch.left[core])

		scratch.right[d-1][0] = 1
		for k := d - 1; k > core; k-- {
			ft.coreValues(k, pt[k], nil, scratch, false)
			c := ft.Cores[k]
			matrixTimesColumn(scratch.vals[k], c.Rows, c.Cols, scratch.right[k], scratch.right[k-1])
		}
		copy(right.Row(s), scratch.right[core])
	}
}

func (ft *FunctionTrain) coreParamGradEval(core int, x []float64, n int, left, right *RunningTotal, basis, values []float64, scratch *GradScratch, evals, grads []float64) {
	d := ft.Dim()
	c := ft.Cores[core]
	p := c.Family.NumParams()
	np := c.NumParams()
	nf := c.Rows * c.Cols
	withGrad := grads != nil
	for s := 0; s < n; s++ {
		var row []float64
		if basis != nil {
			row = basis[s*p : (s+1)*p]
		}
		if values != nil {
			copy(scratch.vals[core], values[s*nf:(s+1)*nf])
		} else {
			ft.coreValues(core, x[s*d+core], row, scratch, withGrad)
		}
		lv, rv := left.Row(s), right.Row(s)
		tmp := scratch.left[core+1]
		rowTimesMatrix(lv, scratch.vals[core], c.Rows, c.Cols, tmp)
		evals[s] = floats.Dot(tmp[:c.Cols], rv)
		if withGrad {
			ft.coreGrad(core, lv, rv, row, scratch, grads[s*np:(s+1)*np])
		}
	}
}

//CoreParamGradEval evaluates the train using running totals prepared by CorePrePostRun.
//When grads is not nil the gradient with respect to the parameters of core is stored
//for every sample in grads[s*CoreNumParams(core):].
func (ft *FunctionTrain) CoreParamGradEval(core int, x []float64, n int, left, right *RunningTotal, scratch *GradScratch, evals, grads []float64) {
	ft.coreParamGradEval(core, x, n, left, right, nil, nil, scratch, evals, grads)
}

//CoreLinParamGradEval is CoreParamGradEval for a linear family with precomputed n x p basis values.
func (ft *FunctionTrain) CoreLinParamGradEval(core int, x []float64, n int, left, right *RunningTotal, basis []float64, scratch *GradScratch, evals, grads []float64) {
	ft.coreParamGradEval(core, x, n, left, right, basis, nil, scratch, evals, grads)
}

//CoreValuesParamGradEval is CoreLinParamGradEval with the functions of core already evaluated:
//values holds Rows*Cols values per sample, in the order of the core parameters.
func (ft *FunctionTrain) CoreValuesParamGradEval(core int, n int, left, right *RunningTotal, basis, values []float64, scratch *GradScratch, evals, grads []float64) {
	c := ft.Cores[core]
	if len(values) < n*c.Rows*c.Cols {
		log.Panicf("core %d needs %d values, got %d", core, n*c.Rows*c.Cols, len(values))
	}
	ft.coreParamGradEval(core, nil, n, left, right, basis, values, scratch, evals, grads)
}

//CoreParamGradSqNorm returns the sum of squared norms of the functions of core k
//and adds scale times its gradient to grad when grad is not nil.
func (ft *FunctionTrain) CoreParamGradSqNorm(k int, scale float64, grad []float64) float64 {
	core := ft.Cores[k]
	p := core.Family.NumParams()
	out := 0.0
	for ind := 0; ind < core.Rows*core.Cols; ind++ {
		var g []float64
		if grad != nil {
			g = grad[ind*p : (ind+1)*p]
		}
		out += core.Family.SqNormGrad(core.Params[ind*p:(ind+1)*p], scale, g)
	}
	return out
}

//ParamGradSqNorm is CoreParamGradSqNorm summed over every core; grad spans all parameters.
func (ft *FunctionTrain) ParamGradSqNorm(scale float64, grad []float64) float64 {
	out := 0.0
	offset := 0
	for k, core := range ft.Cores {
		var g []float64
		if grad != nil {
			g = grad[offset : offset+core.NumParams()]
		}
		out += ft.CoreParamGradSqNorm(k, scale, g)
		offset += core.NumParams()
	}
	return out
}
