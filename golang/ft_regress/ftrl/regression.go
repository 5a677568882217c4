package ftrl

import (
	"errors"
	"log"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
)

//RunInfo summarises one regression run.
type RunInfo struct {
	Objective float64
	Sweeps    int
	RelChange float64
	Converged bool
}

func warnNotConverged(what string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotConverged) {
		log.Printf("warning: %s: %v, keeping the best iterate", what, err)
		return
	}
	log.Printf("warning: %s: %v", what, err)
}

//RunRegression fits ftp to the samples with the algorithm selected in ropts.
//x holds len(y) points row by row.
func RunRegression(ftp *FTParam, ropts *RegressOpts, opt Minimizer, x, y []float64) RunInfo {
	if ropts.Dim != ftp.Dim() {
		log.Panicf("regression options of dimension %d used with a model of dimension %d", ropts.Dim, ftp.Dim())
	}
	switch ropts.Type {
	case AIO:
		return RunAIO(ftp, ropts, opt, x, y)
	case ALS:
		return RunALS(ftp, ropts, opt, x, y)
	}
	log.Panicf("regression type %v unavailable", ropts.Type)
	return RunInfo{}
}

//RunAIO minimizes the objective over all parameters with one optimizer call. When a
//restriction is active only the parameters beyond the thresholds are unknowns.
func RunAIO(ftp *FTParam, ropts *RegressOpts, opt Minimizer, x, y []float64) RunInfo {
	ws := NewWorkspace(len(y), ftp)
	defer ws.Release()
	ws.CheckStructure(ftp, x)

	restricted := ropts.Restricted()
	var guess []float64
	var objective Objective
	if !restricted {
		guess = ftp.Params()
		objective = func(params, grad []float64) float64 {
			mustBeFinite("proposed parameters", params...)
			ftp.UpdateParams(params)
			return EvalObjectiveAIO(ftp, ropts, ws, x, y, grad)
		}
	} else {
		thresholds := ropts.RestrictRank
		guess = ftp.ExtractRestricted(ftp.params, thresholds)
		objective = func(params, grad []float64) float64 {
			mustBeFinite("proposed parameters", params...)
			ftp.UpdateRestricted(params, thresholds)
			if grad == nil {
				return EvalObjectiveAIO(ftp, ropts, ws, x, y, nil)
			}
			val := EvalObjectiveAIO(ftp, ropts, ws, x, y, ws.GradSpace)
			ftp.extractRestrictedInto(ws.GradSpace, thresholds, grad)
			return val
		}
		if ropts.Verbose > 0 {
			log.Printf("AIO restricted to %d of %d parameters", len(guess), ftp.NumParams())
		}
	}

	val, err := opt.Minimize(objective, guess)
	warnNotConverged("AIO regression", err)
	if restricted {
		ftp.UpdateRestricted(guess, ropts.RestrictRank)
	} else {
		ftp.UpdateParams(guess)
	}
	if ropts.Verbose > 0 {
		log.Printf("AIO objective = %g", val)
	}
	return RunInfo{Objective: val, Sweeps: 1, Converged: err == nil}
}

//RunALS sweeps over the cores, solving one small problem per core, until the relative
//change of the model falls below ropts.ALSConvTol or ropts.MaxALSSweeps sweeps are done.
func RunALS(ftp *FTParam, ropts *RegressOpts, opt Minimizer, x, y []float64) RunInfo {
	if ropts.Restricted() && ropts.Verbose > 0 {
		log.Print("ALS optimizes whole cores, the rank restriction is ignored")
	}
	ws := NewWorkspace(len(y), ftp)
	defer ws.Release()
	ws.CheckStructure(ftp, x)

	dim := ftp.Dim()
	objective := func(params, grad []float64) float64 {
		mustBeFinite("proposed parameters", params...)
		ftp.UpdateCoreParams(ropts.ALSActiveCore, params)
		return EvalObjectiveALS(ftp, ropts, ws, x, y, grad)
	}

	var info RunInfo
	for sweep := 1; sweep <= ropts.MaxALSSweeps; sweep++ {
		start := ftp.FT().Copy()
		order := alsSweepOrder(dim)
		for core, ok := order.Next(); ok; core, ok = order.Next() {
			ropts.ALSActiveCore = core
			PrepareALSCore(ftp, ws, core, x)
			guess := ftp.CoreParams(core)
			val, err := opt.Minimize(objective, guess)
			warnNotConverged("ALS core optimization", err)
			ftp.UpdateCoreParams(core, guess)
			info.Objective = val
			if ropts.Verbose > 1 {
				log.Printf("\tcore %d objective = %g", core, val)
			}
		}

		info.Sweeps = sweep
		info.RelChange = relativeChange(start, ftp.FT())
		if ropts.Verbose > 0 {
			log.Printf("ALS sweep %d: objective = %g, relative change = %g", sweep, info.Objective, info.RelChange)
		}
		if info.RelChange < ropts.ALSConvTol {
			info.Converged = true
			break
		}
	}
	if !info.Converged {
		log.Printf("warning: ALS stopped after %d sweeps with a relative change of %g", info.Sweeps, info.RelChange)
	}
	return info
}

func relativeChange(before, after *ftrain.FunctionTrain) float64 {
	diff := ftrain.Norm2Diff(before, after)
	norm := ftrain.Norm2(after)
	if norm == 0 {
		return diff
	}
	return diff / norm
}
