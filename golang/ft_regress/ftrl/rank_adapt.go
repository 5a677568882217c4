package ftrl

import (
	"encoding/json"
	"log"
	"os"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"golang.org/x/exp/slices"
)

//outsideInit is the value of the new functions added by a rank increase.
const outsideInit = 1e-4

//AdaptStep records one candidate of the rank adaptation.
type AdaptStep struct {
	Iteration int     `json:"iteration"`
	Ranks     []int   `json:"ranks"`
	CVError   float64 `json:"cv_error"`
	Accepted  bool    `json:"accepted"`
}

//kickRanks proposes the next ranks. An interior rank that rounding left untouched is
//saturated and grows by kick up to maxRank. The thresholds select the rounded block.
func kickRanks(tracked, rounded []int, kick, maxRank int) (next, thresholds []int, grown bool) {
	dim := len(tracked) - 1
	next = slices.Clone(tracked)
	thresholds = make([]int, dim)
	for k := 1; k < dim; k++ {
		thresholds[k-1] = rounded[k]
		if rounded[k] == tracked[k] {
			next[k] = min(tracked[k]+kick, maxRank)
			if next[k] > tracked[k] {
				grown = true
			}
		}
	}
	thresholds[dim-1] = 1
	return next, thresholds, grown
}

func allAtMax(ranks []int, maxRank int) bool {
	for k := 1; k < len(ranks)-1; k++ {
		if ranks[k] < maxRank {
			return false
		}
	}
	return true
}

func allAtMostMax(ranks []int, maxRank int) bool {
	for k := 1; k < len(ranks)-1; k++ {
		if ranks[k] > maxRank {
			return false
		}
	}
	return true
}

//embed rebuilds the model at ranks with rounded in the block below the thresholds
//and outside everywhere else.
func (reg *FTRegress) embed(rounded *ftrain.FunctionTrain, ranks, thresholds []int, outside float64) {
	reg.ResetParam(reg.opts, ranks)
	reg.ftp.UpdateInsideRestricted(rounded.Params(nil), thresholds)
	fill := make([]float64, reg.ftp.NumParamsRestricted(thresholds))
	for ind := range fill {
		fill[ind] = outside
	}
	reg.ftp.UpdateRestricted(fill, thresholds)
}

//RunRankAdapt fits the data and then grows the ranks while the cross validation
//error decreases. The ranks never fall below the initial ones nor exceed the maximal rank.
func (reg *FTRegress) RunRankAdapt(opt Minimizer, x, y []float64) *ftrain.FunctionTrain {
	if ranks := reg.Ranks(); !allAtMostMax(ranks, reg.maxRank) {
		log.Panicf("initial ranks %v exceed the maximal rank %d", ranks, reg.maxRank)
	}
	adapt := reg.adapt
	reg.adapt = false
	defer func() { reg.adapt = adapt }()
	defer reg.RegOpts.ClearRestriction()

	verbose := reg.RegOpts.Verbose
	cv := NewCrossValidate(x, y, reg.Dim(), reg.kfold, 0)
	cvErr := cv.Run(reg, opt)
	ft := reg.Run(opt, x, y)
	tracked := slices.Clone(ft.Ranks)
	reg.History = []AdaptStep{{Ranks: slices.Clone(tracked), CVError: cvErr, Accepted: true}}
	if verbose > 0 {
		log.Printf("rank adaptation: ranks %v, cv error %g", tracked, cvErr)
	}

	for iter := 1; iter <= reg.adaptMaxIter; iter++ {
		if allAtMax(tracked, reg.maxRank) {
			break
		}
		rounded, err := ft.Round(reg.roundTol)
		if err != nil {
			log.Printf("warning: rank adaptation stops: %v", err)
			break
		}
		next, thresholds, grown := kickRanks(tracked, rounded.Ranks, reg.kickRank, reg.maxRank)
		if !grown {
			if verbose > 0 {
				log.Printf("rank adaptation: rounded ranks %v are below %v, done", rounded.Ranks, tracked)
			}
			break
		}

		reg.embed(rounded, next, thresholds, outsideInit)
		if reg.optRestricted {
			copy(reg.RegOpts.RestrictRank, thresholds)
		} else {
			reg.RegOpts.ClearRestriction()
		}
		newErr := cv.Run(reg, opt)
		step := AdaptStep{Iteration: iter, Ranks: slices.Clone(next), CVError: newErr}
		if verbose > 0 {
			log.Printf("rank adaptation: ranks %v, cv error %g", next, newErr)
		}

		if newErr > cvErr {
			reg.History = append(reg.History, step)
			reg.RegOpts.ClearRestriction()
			reg.embed(rounded, tracked, thresholds, 0)
			ft = reg.FT()
			break
		}
		step.Accepted = true
		reg.History = append(reg.History, step)
		ft = reg.Run(opt, x, y)
		cvErr = newErr
		tracked = next
	}

	reg.RegOpts.ClearRestriction()
	if reg.finalize {
		ft = reg.Run(opt, x, y)
	}
	return ft
}

type historyDump struct {
	Titles []string    `json:"titles"`
	Steps  []AdaptStep `json:"steps"`
}

//DumpHistory writes the steps of the last rank adaptation as json.
func (reg *FTRegress) DumpHistory(fileName string) {
	dump := historyDump{Titles: []string{"ranks", "cv_error"}, Steps: reg.History}
	data, err := json.MarshalIndent(dump, "", "  ")
	HandleError(err)
	HandleError(os.WriteFile(fileName, data, 0644))
}
