package ftrl

import (
	"log"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"gorgonia.org/tensor"
)

//ParamStructure tells whether the model is linear in its parameters.
type ParamStructure int

const (
	LinearStructure ParamStructure = iota
	NonlinearStructure
)

//ExtractStructure inspects the families of the model.
func ExtractStructure(ftp *FTParam) ParamStructure {
	if ftp.Opts().AllLinear() {
		return LinearStructure
	}
	return NonlinearStructure
}

//Workspace holds the buffers of one regression run. They are sized once from the
//largest rank and core of the model and reused by every objective evaluation.
type Workspace struct {
	N      int
	layout ParamLayout

	Evals     []float64
	Grads     []float64 // per sample gradients, N x Total
	GradSpace []float64 // one full gradient

	Left, Right  *ftrain.RunningTotal
	preparedCore int

	scratch *ftrain.GradScratch

	structure         ParamStructure
	structureComputed bool
	basis             []*tensor.Dense
	basisData         [][]float64
	coefBuf           []float64 // p x Rows*Cols coefficients of one core
	valueBuf          []float64 // n x Rows*Cols function values of one core

	released bool
}

//NewWorkspace allocates the buffers needed to fit ftp on n samples.
func NewWorkspace(n int, ftp *FTParam) *Workspace {
	if n <= 0 {
		log.Panicf("a workspace needs a positive number of samples, got %d", n)
	}
	layout := ftp.Layout()
	maxRank := layout.MaxRank()
	return &Workspace{
		N:            n,
		layout:       layout,
		Evals:        make([]float64, n),
		Grads:        make([]float64, n*layout.Total),
		GradSpace:    make([]float64, layout.Total),
		Left:         ftrain.NewRunningTotal(n, maxRank),
		Right:        ftrain.NewRunningTotal(n, maxRank),
		preparedCore: -1,
		scratch:      ftrain.NewGradScratch(ftp.FT()),
		structure:    ExtractStructure(ftp),
	}
}

//Enough reports whether the workspace can serve n samples.
func (ws *Workspace) Enough(n int) bool {
	return !ws.released && n <= ws.N
}

//ResetRunning clears the running totals before a fresh pass over the samples.
func (ws *Workspace) ResetRunning() {
	ws.mustBeReady()
	ws.Left.Restart()
	ws.Right.Restart()
	ws.preparedCore = -1
}

//CheckStructure precomputes the basis values of every sample once when the model is linear.
func (ws *Workspace) CheckStructure(ftp *FTParam, x []float64) {
	ws.mustBeReady()
	if ws.structure != LinearStructure || ws.structureComputed {
		return
	}
	dim := ftp.Dim()
	ws.basis = make([]*tensor.Dense, dim)
	ws.basisData = make([][]float64, dim)
	for k := 0; k < dim; k++ {
		family := ftp.Opts().Family(k).(ftrain.LinearFamily)
		p := ws.layout.PerUni[k]
		ws.basis[k] = tensor.New(tensor.WithShape(ws.N, p), tensor.Of(tensor.Float64))
		data := ws.basis[k].Data().([]float64)
		for s := 0; s < ws.N; s++ {
			family.Basis(x[s*dim+k], data[s*p:(s+1)*p])
		}
		ws.basisData[k] = data
	}
	maxRank := ws.layout.MaxRank()
	ws.coefBuf = make([]float64, ws.layout.MaxUni*maxRank*maxRank)
	ws.valueBuf = make([]float64, ws.N*maxRank*maxRank)
	ws.structureComputed = true
}

//CoreValues evaluates every function of core k at the first n samples as the product of
//the n x p basis with the p x Rows*Cols coefficient matrix of the core.
func (ws *Workspace) CoreValues(ft *ftrain.FunctionTrain, k, n int) []float64 {
	ws.mustBeReady()
	if !ws.structureComputed {
		log.Panic("core values need the precomputed basis")
	}
	core := ft.Cores[k]
	p := ws.layout.PerUni[k]
	nf := core.Rows * core.Cols
	coefData := ws.coefBuf[:p*nf]
	for ind := 0; ind < nf; ind++ {
		for l := 0; l < p; l++ {
			coefData[l*nf+ind] = core.Params[ind*p+l]
		}
	}

	basis := ws.basis[k]
	if n != ws.N {
		basis = tensor.New(tensor.WithShape(n, p), tensor.WithBacking(ws.basisData[k][:n*p]))
	}
	coef := tensor.New(tensor.WithShape(p, nf), tensor.WithBacking(coefData))
	values := tensor.New(tensor.WithShape(n, nf), tensor.WithBacking(ws.valueBuf[:n*nf]))
	_, err := basis.MatMul(coef, tensor.WithReuse(values))
	HandleError(err)
	return ws.valueBuf[:n*nf]
}

//StructureComputed reports whether the linear fast path is available.
func (ws *Workspace) StructureComputed() bool {
	return ws.structureComputed
}

//Basis returns the value of basis function l of dimension k at sample s.
func (ws *Workspace) Basis(k, s, l int) float64 {
	val, err := ws.basis[k].At(s, l)
	HandleError(err)
	return val.(float64)
}

//Release drops the buffers; the workspace can't be used afterwards.
func (ws *Workspace) Release() {
	ws.Evals, ws.Grads, ws.GradSpace = nil, nil, nil
	ws.Left, ws.Right = nil, nil
	ws.scratch = nil
	ws.basis, ws.basisData = nil, nil
	ws.coefBuf, ws.valueBuf = nil, nil
	ws.structureComputed = false
	ws.released = true
}

func (ws *Workspace) mustBeReady() {
	if ws.released {
		log.Panic("workspace used after release")
	}
}
