package ftrl

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

//ErrNotConverged is returned by a Minimizer that stopped before reaching a minimum.
//The returned point is still the best one found.
var ErrNotConverged = errors.New("optimizer did not converge")

//Objective returns the value of a function at params. When grad is not nil
//it must be overwritten by the gradient.
type Objective func(params, grad []float64) float64

//Minimizer is a black box gradient based minimizer. The solution is written back into x.
type Minimizer interface {
	Minimize(objective Objective, x []float64) (float64, error)
}

//Method names a gonum optimization method.
type Method int

const (
	LBFGS Method = iota
	BFGS
	CG
	GradientDescent
)

//ParseMethod converts a method name into a Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "lbfgs", "":
		return LBFGS, nil
	case "bfgs":
		return BFGS, nil
	case "cg":
		return CG, nil
	case "gd", "gradient_descent":
		return GradientDescent, nil
	}
	return 0, fmt.Errorf("unknown optimization method %q", name)
}

//Optimizer adapts gonum's optimize package to the Minimizer interface.
type Optimizer struct {
	Method        Method
	MaxIter       int
	GradTol       float64
	AbsFTol       float64
	RelFTol       float64
	ConvergeIters int
	Verbose       int
}

//NewOptimizer creates an optimizer with the usual tolerances.
func NewOptimizer(method Method) *Optimizer {
	return &Optimizer{
		Method:        method,
		MaxIter:       1000,
		GradTol:       1e-10,
		AbsFTol:       1e-14,
		RelFTol:       1e-12,
		ConvergeIters: 20,
	}
}

func (opt *Optimizer) method() optimize.Method {
	switch opt.Method {
	case BFGS:
		return &optimize.BFGS{}
	case CG:
		return &optimize.CG{}
	case GradientDescent:
		return &optimize.GradientDescent{}
	}
	return &optimize.LBFGS{}
}

//Minimize runs gonum's minimizer from x and stores the best point back into x.
func (opt *Optimizer) Minimize(objective Objective, x []float64) (float64, error) {
	if len(x) == 0 {
		return objective(x, nil), nil
	}

	// gonum asks for the value and the gradient at the same point separately
	var cachedX, cachedGrad []float64
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			if cachedGrad == nil {
				cachedGrad = make([]float64, len(params))
			}
			val := objective(params, cachedGrad)
			cachedX = append(cachedX[:0], params...)
			return val
		},
		Grad: func(grad, params []float64) {
			if cachedX != nil && floats.Equal(cachedX, params) {
				copy(grad, cachedGrad)
				return
			}
			objective(params, grad)
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: opt.GradTol,
		MajorIterations:   opt.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   opt.AbsFTol,
			Relative:   opt.RelFTol,
			Iterations: opt.ConvergeIters,
		},
	}

	result, err := optimize.Minimize(problem, slices.Clone(x), settings, opt.method())
	if result == nil {
		return objective(x, nil), fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	copy(x, result.X)
	if opt.Verbose > 1 {
		log.Printf("optimizer: %v after %d iterations, f = %g", result.Status, result.MajorIterations, result.F)
	}
	if err != nil {
		return result.F, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	if result.Status.Early() {
		return result.F, fmt.Errorf("%w: %v", ErrNotConverged, result.Status)
	}
	return result.F, nil
}
