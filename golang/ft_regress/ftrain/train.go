package ftrain

import (
	"log"

	"golang.org/x/exp/slices"
)

//Core is one link of a function train: a Rows x Cols grid of univariate functions.
//The parameters of the grid are stored column-major, each function's parameters contiguous.
type Core struct {
	Rows, Cols int
	Family     Family
	Params     []float64
}

func newCore(rows, cols int, family Family) *Core {
	return &Core{Rows: rows, Cols: cols, Family: family, Params: make([]float64, rows*cols*family.NumParams())}
}

//NumParams returns the number of parameters of the core.
func (core *Core) NumParams() int {
	return len(core.Params)
}

//Func returns the parameters of the univariate function at (row, col).
func (core *Core) Func(row, col int) []float64 {
	p := core.Family.NumParams()
	offset := (col*core.Rows + row) * p
	return core.Params[offset : offset+p]
}

//EvalInto stores the values of all functions at x into dst in column-major order.
func (core *Core) EvalInto(x float64, dst []float64) {
	p := core.Family.NumParams()
	for ind := 0; ind < core.Rows*core.Cols; ind++ {
		dst[ind] = core.Family.Eval(core.Params[ind*p:(ind+1)*p], x)
	}
}

//FunctionTrain is a chain of cores; evaluating it multiplies the cores' values at each coordinate.
type FunctionTrain struct {
	Ranks []int
	Cores []*Core
	opts  *ApproxOpts
}

//Zeros creates a function train of the given ranks with all parameters equal to zero.
func Zeros(opts *ApproxOpts, ranks []int) *FunctionTrain {
	dim := opts.Dim()
	validateRanks(dim, ranks)
	ft := &FunctionTrain{Ranks: slices.Clone(ranks), Cores: make([]*Core, dim), opts: opts}
	for k := 0; k < dim; k++ {
		ft.Cores[k] = newCore(ranks[k], ranks[k+1], opts.Family(k))
	}
	return ft
}

func validateRanks(dim int, ranks []int) {
	if len(ranks) != dim+1 {
		log.Panicf("a train of dimension %d needs %d ranks, got %d", dim, dim+1, len(ranks))
	}
	if ranks[0] != 1 || ranks[dim] != 1 {
		log.Panicf("boundary ranks should be equal to 1, got %v", ranks)
	}
	for _, rank := range ranks {
		if rank <= 0 {
			log.Panicf("ranks should be positive, got %v", ranks)
		}
	}
}

//Constant creates a rank one train equal to value everywhere.
func Constant(value float64, opts *ApproxOpts) *FunctionTrain {
	ft := Zeros(opts, onesRanks(opts.Dim()))
	for k, core := range ft.Cores {
		c := 1.0
		if k == 0 {
			c = value
		}
		core.Family.Project(func(float64) float64 { return c }, core.Params)
	}
	return ft
}

//LinearSum creates the rank two train of f(x) = sum_k slopes[k]*x_k + offsets[k].
func LinearSum(slopes, offsets []float64, opts *ApproxOpts) *FunctionTrain {
	dim := opts.Dim()
	if len(slopes) != dim || len(offsets) != dim {
		log.Panicf("linear sum of dimension %d got %d slopes and %d offsets", dim, len(slopes), len(offsets))
	}
	affine := func(k int) func(float64) float64 {
		return func(x float64) float64 { return slopes[k]*x + offsets[k] }
	}
	one := func(float64) float64 { return 1 }

	if dim == 1 {
		ft := Zeros(opts, []int{1, 1})
		ft.Cores[0].Family.Project(affine(0), ft.Cores[0].Params)
		return ft
	}

	ranks := make([]int, dim+1)
	for k := range ranks {
		ranks[k] = 2
	}
	ranks[0], ranks[dim] = 1, 1
	ft := Zeros(opts, ranks)
	for k, core := range ft.Cores {
		switch {
		case k == 0:
			core.Family.Project(affine(k), core.Func(0, 0))
			core.Family.Project(one, core.Func(0, 1))
		case k == dim-1:
			core.Family.Project(one, core.Func(0, 0))
			core.Family.Project(affine(k), core.Func(1, 0))
		default:
			core.Family.Project(one, core.Func(0, 0))
			core.Family.Project(affine(k), core.Func(1, 0))
			core.Family.Project(one, core.Func(1, 1))
		}
	}
	return ft
}

func onesRanks(dim int) []int {
	ranks := make([]int, dim+1)
	for k := range ranks {
		ranks[k] = 1
	}
	return ranks
}

func (ft *FunctionTrain) Dim() int { return len(ft.Cores) }
func (ft *FunctionTrain) Opts() *ApproxOpts { return ft.opts }
func (ft *FunctionTrain) CoreNumParams(k int) int { return ft.Cores[k].NumParams() }

//MaxRank returns the largest rank of the train.
func (ft *FunctionTrain) MaxRank() int {
	maxRank := 0
	for _, rank := range ft.Ranks {
		if rank > maxRank {
			maxRank = rank
		}
	}
	return maxRank
}

//NumParams returns the total number of parameters of the train.
func (ft *FunctionTrain) NumParams() int {
	total := 0
	for _, core := range ft.Cores {
		total += core.NumParams()
	}
	return total
}

//Params copies all parameters, core after core, into dst and returns it.
//A nil dst is allocated.
func (ft *FunctionTrain) Params(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, ft.NumParams())
	}
	offset := 0
	for _, core := range ft.Cores {
		offset += copy(dst[offset:], core.Params)
	}
	return dst
}

//UpdateParams copies params, core after core, into the train.
func (ft *FunctionTrain) UpdateParams(params []float64) {
	if len(params) != ft.NumParams() {
		log.Panicf("train has %d parameters, got %d", ft.NumParams(), len(params))
	}
	offset := 0
	for _, core := range ft.Cores {
		offset += copy(core.Params, params[offset:])
	}
}

//UpdateCoreParams copies params into the k-th core.
func (ft *FunctionTrain) UpdateCoreParams(k int, params []float64) {
	if len(params) != ft.Cores[k].NumParams() {
		log.Panicf("core %d has %d parameters, got %d", k, ft.Cores[k].NumParams(), len(params))
	}
	copy(ft.Cores[k].Params, params)
}

//Copy makes a deep copy of the train.
func (ft *FunctionTrain) Copy() *FunctionTrain {
	out := &FunctionTrain{Ranks: slices.Clone(ft.Ranks), Cores: make([]*Core, len(ft.Cores)), opts: ft.opts}
	for k, core := range ft.Cores {
		out.Cores[k] = &Core{Rows: core.Rows, Cols: core.Cols, Family: core.Family, Params: slices.Clone(core.Params)}
	}
	return out
}

//Eval evaluates the train at the point x.
func (ft *FunctionTrain) Eval(x []float64) float64 {
	if len(x) != ft.Dim() {
		log.Panicf("train of dimension %d evaluated at a point of dimension %d", ft.Dim(), len(x))
	}
	maxRank := ft.MaxRank()
	vals := make([]float64, maxRank*maxRank)
	left := []float64{1}
	next := make([]float64, maxRank)
	for k, core := range ft.Cores {
		core.EvalInto(x[k], vals)
		rowTimesMatrix(left, vals, core.Rows, core.Cols, next)
		left = append(left[:0], next[:core.Cols]...)
	}
	return left[0]
}

//EvalMany evaluates the train at n points stored row by row in x.
func (ft *FunctionTrain) EvalMany(x []float64, n int, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, n)
	}
	d := ft.Dim()
	for s := 0; s < n; s++ {
		dst[s] = ft.Eval(x[s*d : (s+1)*d])
	}
	return dst
}

//rowTimesMatrix computes out = v * M where M is rows x cols stored column-major.
func rowTimesMatrix(v, m []float64, rows, cols int, out []float64) {
	for j := 0; j < cols; j++ {
		s := 0.0
		for i := 0; i < rows; i++ {
			s += v[i] * m[j*rows+i]
		}
		out[j] = s
	}
}

//matrixTimesColumn computes out = M * v where M is rows x cols stored column-major.
func matrixTimesColumn(m []float64, rows, cols int, v, out []float64) {
	for i := 0; i < rows; i++ {
		out[i] = 0
	}
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out[i] += m[j*rows+i] * v[j]
		}
	}
}
