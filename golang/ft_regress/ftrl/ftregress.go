package ftrl

import (
	"log"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
)

const (
	warmStartJitter  = 1e-3
	warmStartMinNorm = 1e-15
)

//FTRegress is the front end of the regression library. It owns the model,
//the regression options and the rank adaptation settings.
type FTRegress struct {
	RegOpts *RegressOpts
	History []AdaptStep

	opts *ftrain.ApproxOpts
	ftp  *FTParam

	adapt         bool
	kickRank      int
	maxRank       int
	roundTol      float64
	kfold         int
	finalize      bool
	optRestricted bool
	adaptMaxIter  int
	seed          uint64
}

//NewFTRegress creates a regressor of the given ranks with zero parameters.
func NewFTRegress(opts *ftrain.ApproxOpts, ranks []int, regType RegType, obj RegObj) *FTRegress {
	reg := &FTRegress{
		RegOpts:      NewRegressOpts(opts.Dim(), regType, obj),
		kickRank:     1,
		maxRank:      10,
		roundTol:     1e-8,
		kfold:        5,
		finalize:     true,
		adaptMaxIter: 10,
	}
	reg.ResetParam(opts, ranks)
	return reg
}

func (reg *FTRegress) SetAdapt(adapt bool) { reg.adapt = adapt }
func (reg *FTRegress) SetKickRank(kick int) { reg.kickRank = kick }
func (reg *FTRegress) SetMaxRank(maxRank int) { reg.maxRank = maxRank }
func (reg *FTRegress) SetRoundTol(tol float64) { reg.roundTol = tol }
func (reg *FTRegress) SetFinalize(finalize bool) { reg.finalize = finalize }
func (reg *FTRegress) SetOptRestricted(restricted bool) { reg.optRestricted = restricted }
func (reg *FTRegress) SetAdaptMaxIter(iters int) { reg.adaptMaxIter = iters }
func (reg *FTRegress) SetRegWeight(weight float64) { reg.RegOpts.RegWeight = weight }
func (reg *FTRegress) SetVerbose(verbose int) { reg.RegOpts.Verbose = verbose }

//SetKFold sets the number of folds used to score candidate ranks.
func (reg *FTRegress) SetKFold(kfold int) {
	if kfold < 2 {
		log.Panicf("at least two folds are needed, got %d", kfold)
	}
	reg.kfold = kfold
}

//SetSeed reseeds the jitter of the warm starts. The parameters are reset.
func (reg *FTRegress) SetSeed(seed uint64) {
	reg.seed = seed
	reg.ResetParam(reg.opts, reg.ftp.Ranks())
}

//SetAlgAndObj switches the algorithm and the objective, keeping the other settings.
func (reg *FTRegress) SetAlgAndObj(regType RegType, obj RegObj) {
	fresh := NewRegressOpts(reg.Dim(), regType, obj)
	reg.RegOpts.Type = fresh.Type
	reg.RegOpts.Obj = fresh.Obj
}

//ResetParam rebuilds the model with new options and ranks. Every parameter becomes zero.
func (reg *FTRegress) ResetParam(opts *ftrain.ApproxOpts, ranks []int) {
	if reg.RegOpts.Dim != opts.Dim() {
		log.Panicf("regressor of dimension %d can't take options of dimension %d", reg.RegOpts.Dim, opts.Dim())
	}
	reg.opts = opts
	reg.ftp = NewFTParam(opts, ranks, nil, reg.seed)
}

func (reg *FTRegress) Dim() int { return reg.RegOpts.Dim }
func (reg *FTRegress) FTP() *FTParam { return reg.ftp }
func (reg *FTRegress) Opts() *ftrain.ApproxOpts { return reg.opts }
func (reg *FTRegress) Ranks() []int { return reg.ftp.Ranks() }
func (reg *FTRegress) Params() []float64 { return reg.ftp.Params() }

//UpdateParams overwrites the parameters of the current model.
func (reg *FTRegress) UpdateParams(params []float64) {
	reg.ftp.UpdateParams(params)
}

//FT returns a copy of the current model.
func (reg *FTRegress) FT() *ftrain.FunctionTrain {
	return reg.ftp.FT().Copy()
}

//Run fits the current model to the samples and returns a copy of the result.
//A model with vanishing parameters is first started from the affine fit of the data.
func (reg *FTRegress) Run(opt Minimizer, x, y []float64) *ftrain.FunctionTrain {
	if len(x) != len(y)*reg.Dim() {
		log.Panicf("%d inputs for %d labels of dimension %d", len(x), len(y), reg.Dim())
	}
	if floats.Dot(reg.ftp.params, reg.ftp.params) <= warmStartMinNorm {
		if reg.RegOpts.Verbose > 0 {
			log.Print("starting from the linear fit of the data")
		}
		reg.ftp.CreateFromLinearFit(x, y, warmStartJitter)
	}
	RunRegression(reg.ftp, reg.RegOpts, opt, x, y)
	return reg.FT()
}

//Fit runs rank adaptation when it is enabled and a single regression otherwise.
func (reg *FTRegress) Fit(opt Minimizer, x, y []float64) *ftrain.FunctionTrain {
	if reg.adapt {
		return reg.RunRankAdapt(opt, x, y)
	}
	return reg.Run(opt, x, y)
}

//Predict evaluates the current model at n points stored row by row.
func (reg *FTRegress) Predict(x []float64) []float64 {
	if len(x)%reg.Dim() != 0 {
		log.Panicf("%d inputs is not a multiple of the dimension %d", len(x), reg.Dim())
	}
	return reg.ftp.FT().EvalMany(x, len(x)/reg.Dim(), nil)
}

type modelState struct {
	ranks  []int
	params []float64
}

func (reg *FTRegress) snapshot() modelState {
	return modelState{ranks: reg.ftp.Ranks(), params: reg.ftp.Params()}
}

func (reg *FTRegress) restore(state modelState) {
	if !slices.Equal(state.ranks, reg.ftp.layout.Ranks) {
		reg.ResetParam(reg.opts, state.ranks)
	}
	reg.ftp.UpdateParams(state.params)
}
