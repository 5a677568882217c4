package ftrl

import (
	"fmt"
	"log"
)

//RegType selects the optimization strategy.
type RegType int

const (
	//ALS optimizes one core at a time, sweeping back and forth.
	ALS RegType = iota
	//AIO optimizes all parameters at once.
	AIO
)

func (t RegType) String() string {
	switch t {
	case ALS:
		return "ALS"
	case AIO:
		return "AIO"
	}
	return fmt.Sprintf("RegType(%d)", int(t))
}

//ParseRegType converts "als" or "aio" into a RegType.
func ParseRegType(name string) (RegType, error) {
	switch name {
	case "als", "ALS":
		return ALS, nil
	case "aio", "AIO":
		return AIO, nil
	}
	return 0, fmt.Errorf("unknown regression type %q", name)
}

//RegObj selects the objective.
type RegObj int

const (
	//LS is the plain least squares objective.
	LS RegObj = iota
	//LSSparseL2 adds the squared L2 norms of the univariate functions.
	LSSparseL2
)

func (o RegObj) String() string {
	switch o {
	case LS:
		return "LS"
	case LSSparseL2:
		return "LS_SPARSEL2"
	}
	return fmt.Sprintf("RegObj(%d)", int(o))
}

//ParseRegObj converts "ls" or "ls_sparsel2" into a RegObj.
func ParseRegObj(name string) (RegObj, error) {
	switch name {
	case "ls", "LS":
		return LS, nil
	case "ls_sparsel2", "LS_SPARSEL2":
		return LSSparseL2, nil
	}
	return 0, fmt.Errorf("unknown regression objective %q", name)
}

//RegressOpts collects the settings of one regression run.
type RegressOpts struct {
	Type          RegType
	Obj           RegObj
	Dim           int
	Verbose       int
	RegWeight     float64
	MaxALSSweeps  int
	ALSActiveCore int
	ALSConvTol    float64
	//RestrictRank limits AIO to the parameters beyond these thresholds when any entry is positive.
	RestrictRank []int
}

//Option modifies RegressOpts.
type Option func(*RegressOpts)

//WithRegWeight sets the weight of the sparsity term.
func WithRegWeight(weight float64) Option {
	return func(opts *RegressOpts) {
		opts.RegWeight = weight
	}
}

//WithMaxALSSweeps sets the number of ALS sweeps.
func WithMaxALSSweeps(sweeps int) Option {
	return func(opts *RegressOpts) {
		opts.MaxALSSweeps = sweeps
	}
}

//WithALSConvTol sets the relative change below which ALS stops.
func WithALSConvTol(tol float64) Option {
	return func(opts *RegressOpts) {
		opts.ALSConvTol = tol
	}
}

//WithVerbose sets the verbosity level.
func WithVerbose(verbose int) Option {
	return func(opts *RegressOpts) {
		opts.Verbose = verbose
	}
}

//NewRegressOpts creates options with the defaults for the given problem type.
func NewRegressOpts(dim int, regType RegType, obj RegObj, options ...Option) *RegressOpts {
	if regType != ALS && regType != AIO {
		log.Panicf("regression type %v unavailable", regType)
	}
	if obj != LS && obj != LSSparseL2 {
		log.Panicf("regression objective %v unavailable", obj)
	}
	opts := &RegressOpts{
		Type:         regType,
		Obj:          obj,
		Dim:          dim,
		RegWeight:    1e-10,
		MaxALSSweeps: 10,
		ALSConvTol:   1e-5,
		RestrictRank: make([]int, dim),
	}
	for _, option := range options {
		option(opts)
	}
	return opts
}

//Restricted reports whether a restriction threshold is active.
func (opts *RegressOpts) Restricted() bool {
	for _, rank := range opts.RestrictRank {
		if rank > 0 {
			return true
		}
	}
	return false
}

//ClearRestriction removes every restriction threshold.
func (opts *RegressOpts) ClearRestriction() {
	for ind := range opts.RestrictRank {
		opts.RestrictRank[ind] = 0
	}
}
