package ftrl

import (
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
)

//mustBeFinite stops the run when a value is NaN or infinite; a corrupted trajectory can't be recovered.
func mustBeFinite(what string, values ...float64) {
	for ind, val := range values {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			log.Panicf("%s: non finite value %v at position %d", what, val, ind)
		}
	}
}

func checkSamples(ftp *FTParam, ws *Workspace, x, y []float64) int {
	n := len(y)
	if len(x) != n*ftp.Dim() {
		log.Panicf("%d inputs given for %d samples of dimension %d", len(x), n, ftp.Dim())
	}
	if !ws.Enough(n) {
		log.Panicf("workspace sized for %d samples used with %d", ws.N, n)
	}
	return n
}

//accumulateLS turns the model values in ws.Evals into 0.5*sum(resid^2)/n and adds
//-resid*g_s/n to grad, where g_s is the per sample gradient of width stride.
func accumulateLS(ws *Workspace, y []float64, stride int, grad []float64) float64 {
	n := len(y)
	out := 0.0
	for s := 0; s < n; s++ {
		resid := y[s] - ws.Evals[s]
		out += 0.5 * resid * resid
		if grad != nil {
			floats.AddScaled(grad, -resid/float64(n), ws.Grads[s*stride:(s+1)*stride])
		}
	}
	return out / float64(n)
}

func zero(values []float64) {
	for ind := range values {
		values[ind] = 0
	}
}

//EvalObjectiveAIO evaluates the objective over all parameters at the current state of ftp.
//When grad is not nil it is overwritten by the gradient.
func EvalObjectiveAIO(ftp *FTParam, ropts *RegressOpts, ws *Workspace, x, y, grad []float64) float64 {
	n := checkSamples(ftp, ws, x, y)
	ws.mustBeReady()
	ft := ftp.FT()

	var grads []float64
	if grad != nil {
		zero(grad)
		grads = ws.Grads[:n*ws.layout.Total]
	}
	if ws.structureComputed {
		ft.LinParamGradEval(x, n, ws.basisData, ws.scratch, ws.Evals, grads)
	} else {
		ft.ParamGradEval(x, n, ws.scratch, ws.Evals, grads)
	}
	mustBeFinite("model evaluation", ws.Evals[:n]...)

	out := accumulateLS(ws, y, ws.layout.Total, grad)
	if ropts.Obj == LSSparseL2 {
		out += 0.5 * ropts.RegWeight * ft.ParamGradSqNorm(0.5*ropts.RegWeight, grad)
	}
	mustBeFinite("objective", out)
	if grad != nil {
		mustBeFinite("gradient", grad...)
	}
	return out
}

//PrepareALSCore computes the running totals of the cores around core.
//It runs once per core visit, not once per objective evaluation.
func PrepareALSCore(ftp *FTParam, ws *Workspace, core int, x []float64) {
	ws.mustBeReady()
	n := len(x) / ftp.Dim()
	ws.ResetRunning()
	ftp.FT().CorePrePostRun(core, x, n, ws.Left, ws.Right, ws.scratch)
	mustBeFinite("left running total", ws.Left.Vals...)
	mustBeFinite("right running total", ws.Right.Vals...)
	ws.preparedCore = core
}

//EvalObjectiveALS evaluates the objective as a function of the parameters of ropts.ALSActiveCore.
func EvalObjectiveALS(ftp *FTParam, ropts *RegressOpts, ws *Workspace, x, y, grad []float64) float64 {
	n := checkSamples(ftp, ws, x, y)
	core := ropts.ALSActiveCore
	if ws.preparedCore != core {
		log.Panicf("running totals prepared for core %d, objective asked for core %d", ws.preparedCore, core)
	}
	ft := ftp.FT()
	np := ws.layout.PerCore[core]

	var grads []float64
	if grad != nil {
		zero(grad)
		grads = ws.Grads[:n*np]
	}
	if ws.structureComputed {
		values := ws.CoreValues(ft, core, n)
		ft.CoreValuesParamGradEval(core, n, ws.Left, ws.Right, ws.basisData[core], values, ws.scratch, ws.Evals, grads)
	} else {
		ft.CoreParamGradEval(core, x, n, ws.Left, ws.Right, ws.scratch, ws.Evals, grads)
	}
	mustBeFinite("model evaluation", ws.Evals[:n]...)

	out := accumulateLS(ws, y, np, grad)
	if ropts.Obj == LSSparseL2 {
		out += 0.5 * ropts.RegWeight * ft.CoreParamGradSqNorm(core, 0.5*ropts.RegWeight, grad)
	}
	mustBeFinite("objective", out)
	if grad != nil {
		mustBeFinite("gradient", grad...)
	}
	return out
}
