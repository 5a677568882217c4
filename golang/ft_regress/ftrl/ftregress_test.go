package ftrl

import (
	"encoding/json"
	"math"
	"os"
	"path"
	"testing"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func quadraticData(n int, seed uint64) (x, y []float64) {
	return generateRandomData(n, 2, -1, 1, seed, func(pt []float64) float64 {
		return pt[0]*pt[0] + pt[1]*pt[1] + pt[0]*pt[1]
	})
}

func TestRunStartsFromLinearFit(t *testing.T) {
	x, y := generateGridData(10, -1, 1, func(u, v float64) float64 { return 2*u - v + 1 })
	reg := NewFTRegress(ftrain.UniformLegendre(2, 2, -1, 1), []int{1, 2, 1}, AIO, LS)
	ft := reg.Run(NewOptimizer(LBFGS), x, y)

	assert.InDeltaSlice(t, y, ft.EvalMany(x, len(y), nil), 1e-4)
	assert.InDeltaSlice(t, y, reg.Predict(x), 1e-4)
	assert.Equal(t, reg.Params(), ft.Params(nil))
}

func TestResetParamAndSetAlgAndObj(t *testing.T) {
	reg := NewFTRegress(ftrain.UniformLegendre(3, 2, -1, 1), []int{1, 2, 2, 1}, AIO, LS)
	reg.SetRegWeight(0.5)
	reg.SetAlgAndObj(ALS, LSSparseL2)
	assert.Equal(t, ALS, reg.RegOpts.Type)
	assert.Equal(t, LSSparseL2, reg.RegOpts.Obj)
	assert.Equal(t, 0.5, reg.RegOpts.RegWeight)

	reg.UpdateParams(randomVector(len(reg.Params()), 1))
	reg.ResetParam(reg.Opts().WithNumParams(3), []int{1, 3, 2, 1})
	assert.Equal(t, []int{1, 3, 2, 1}, reg.Ranks())
	assert.Equal(t, make([]float64, 3*3+3*2*3+2*3), reg.Params())
	require.Panics(t, func() { reg.ResetParam(ftrain.UniformLegendre(2, 2, -1, 1), []int{1, 1, 1}) })
}

func TestCrossValidateFolds(t *testing.T) {
	x, y := quadraticData(13, 2)
	cv := NewCrossValidate(x, y, 2, 4, 0)

	total := 0
	for fold := 0; fold < 4; fold++ {
		start, size := cv.foldBounds(fold)
		assert.Equal(t, total, start)
		total += size

		xTest, yTest, xTrain, yTrain := cv.ExtractData(start, size)
		assert.Equal(t, y[start:start+size], yTest)
		assert.Equal(t, x[2*start:2*(start+size)], xTest)
		assert.Len(t, yTrain, 13-size)
		assert.Len(t, xTrain, 2*(13-size))
		assert.Equal(t, append(append([]float64{}, y[:start]...), y[start+size:]...), yTrain)
	}
	assert.Equal(t, 13, total)
	_, lastSize := cv.foldBounds(3)
	assert.Equal(t, 4, lastSize)

	require.Panics(t, func() { NewCrossValidate(x, y, 2, 1, 0) })
	require.Panics(t, func() { NewCrossValidate(x, y, 3, 4, 0) })
}

func TestCrossValidateHasNoSideEffects(t *testing.T) {
	x, y := quadraticData(30, 3)
	xCopy := append([]float64(nil), x...)
	yCopy := append([]float64(nil), y...)
	reg := NewFTRegress(ftrain.UniformLegendre(2, 3, -1, 1), []int{1, 2, 1}, AIO, LS)
	reg.UpdateParams(randomVector(len(reg.Params()), 4))
	before := reg.Params()

	cv := NewCrossValidate(x, y, 2, 3, 0)
	err := cv.Run(reg, NewOptimizer(LBFGS))
	assert.False(t, math.IsNaN(err))
	assert.Equal(t, before, reg.Params())
	assert.Equal(t, before, reg.FTP().FT().Params(nil))
	assert.Equal(t, xCopy, x)
	assert.Equal(t, yCopy, y)
}

func TestCrossValidateRankOneQuadraticIsReproducible(t *testing.T) {
	x, y := quadraticData(50, 5)
	run := func() float64 {
		reg := NewFTRegress(ftrain.UniformLegendre(2, 3, -1, 1), []int{1, 1, 1}, AIO, LS)
		reg.SetSeed(7)
		return NewCrossValidate(x, y, 2, 5, 0).Run(reg, NewOptimizer(LBFGS))
	}
	first := run()
	assert.False(t, math.IsNaN(first))
	assert.False(t, math.IsInf(first, 0))
	assert.Greater(t, first, 1e-3)
	assert.Equal(t, first, run())
}

func TestCrossValidateImprovesWithRank(t *testing.T) {
	x, y := quadraticData(50, 5)
	cvErr := func(rank int) float64 {
		reg := NewFTRegress(ftrain.UniformLegendre(2, 3, -1, 1), []int{1, rank, 1}, AIO, LS)
		return NewCrossValidate(x, y, 2, 5, 0).Run(reg, NewOptimizer(LBFGS))
	}
	assert.Less(t, cvErr(3), cvErr(1))
	assert.Less(t, cvErr(3), 1e-3)
}

func TestKickRanks(t *testing.T) {
	next, thresholds, grown := kickRanks([]int{1, 2, 3, 1}, []int{1, 2, 2, 1}, 1, 10)
	assert.Equal(t, []int{1, 3, 3, 1}, next)
	assert.Equal(t, []int{2, 2, 1}, thresholds)
	assert.True(t, grown)

	next, _, grown = kickRanks([]int{1, 4, 4, 1}, []int{1, 4, 4, 1}, 2, 5)
	assert.Equal(t, []int{1, 5, 5, 1}, next)
	assert.True(t, grown)

	next, _, grown = kickRanks([]int{1, 3, 3, 1}, []int{1, 2, 1, 1}, 1, 10)
	assert.Equal(t, []int{1, 3, 3, 1}, next)
	assert.False(t, grown)

	assert.True(t, allAtMax([]int{1, 4, 4, 1}, 4))
	assert.False(t, allAtMax([]int{1, 4, 3, 1}, 4))
	assert.True(t, allAtMax([]int{1, 1}, 4))
}

func TestEmbedKeepsTheRoundedFunction(t *testing.T) {
	opts := ftrain.UniformLegendre(3, 2, -1, 1)
	reg := NewFTRegress(opts, []int{1, 2, 2, 1}, AIO, LS)
	rounded := ftrain.LinearSum([]float64{1, -1, 2}, []float64{0, 0, 0.5}, opts)
	_, thresholds, _ := kickRanks([]int{1, 2, 2, 1}, rounded.Ranks, 1, 10)

	reg.embed(rounded, []int{1, 3, 3, 1}, thresholds, 0)
	x, _ := generateRandomData(10, 3, -1, 1, 9, func([]float64) float64 { return 0 })
	assert.InDeltaSlice(t, rounded.EvalMany(x, 10, nil), reg.Predict(x), 1e-12)

	reg.embed(rounded, []int{1, 3, 3, 1}, thresholds, outsideInit)
	outside := reg.FTP().ExtractRestricted(reg.Params(), thresholds)
	for _, val := range outside {
		assert.Equal(t, outsideInit, val)
	}
}

func TestRankAdaptationGrowsRanks(t *testing.T) {
	x, y := generateRandomData(60, 3, -1, 1, 11, func(pt []float64) float64 {
		return pt[0]*pt[1] + pt[1]*pt[2] + pt[0]*pt[2]
	})
	reg := NewFTRegress(ftrain.UniformLegendre(3, 3, -1, 1), []int{1, 1, 1, 1}, AIO, LS)
	reg.SetAdapt(true)
	reg.SetMaxRank(3)
	reg.SetKFold(3)
	reg.SetSeed(13)
	opt := NewOptimizer(LBFGS)
	opt.MaxIter = 300

	ft := reg.Fit(opt, x, y)
	require.NotEmpty(t, reg.History)
	assert.Equal(t, []int{1, 1, 1, 1}, reg.History[0].Ranks)
	for k := 1; k < 3; k++ {
		assert.GreaterOrEqual(t, ft.Ranks[k], 1)
		assert.LessOrEqual(t, ft.Ranks[k], 3)
	}
	assert.Greater(t, ft.MaxRank(), 1)
	for ind := 1; ind < len(reg.History); ind++ {
		prev, cur := reg.History[ind-1].Ranks, reg.History[ind].Ranks
		for k := range cur {
			assert.GreaterOrEqual(t, cur[k], prev[k])
			assert.LessOrEqual(t, cur[k], 3)
		}
	}
	assert.False(t, reg.RegOpts.Restricted())
	assert.True(t, reg.adapt)
	assert.Equal(t, ft.Ranks, reg.Ranks())
}

func TestRankAdaptationRestrictedNeverShrinks(t *testing.T) {
	x, y := quadraticData(40, 12)
	reg := NewFTRegress(ftrain.UniformLegendre(2, 3, -1, 1), []int{1, 2, 1}, AIO, LS)
	reg.SetOptRestricted(true)
	reg.SetMaxRank(4)
	reg.SetKFold(4)

	ft := reg.RunRankAdapt(NewOptimizer(LBFGS), x, y)
	assert.GreaterOrEqual(t, ft.Ranks[1], 2)
	assert.LessOrEqual(t, ft.Ranks[1], 4)
	assert.False(t, reg.RegOpts.Restricted())
	assert.False(t, reg.adapt)
}

func TestRankAdaptationStopsAtMaxRank(t *testing.T) {
	x, y := quadraticData(30, 14)
	reg := NewFTRegress(ftrain.UniformLegendre(2, 3, -1, 1), []int{1, 2, 1}, ALS, LS)
	reg.SetMaxRank(2)
	reg.SetKFold(3)

	ft := reg.RunRankAdapt(NewOptimizer(LBFGS), x, y)
	assert.Equal(t, []int{1, 2, 1}, ft.Ranks)
	assert.Len(t, reg.History, 1)
}

func TestRankAdaptationRejectsRanksAboveMax(t *testing.T) {
	x, y := generateRandomData(30, 3, -1, 1, 15, func(pt []float64) float64 { return pt[0] + pt[2] })
	reg := NewFTRegress(ftrain.UniformLegendre(3, 3, -1, 1), []int{1, 4, 1, 1}, AIO, LS)
	reg.SetMaxRank(2)
	reg.SetKFold(3)

	assert.Panics(t, func() { reg.RunRankAdapt(NewOptimizer(LBFGS), x, y) })
	assert.Empty(t, reg.History)
}

func TestCrossValidationKeepsAdaptationHistory(t *testing.T) {
	x, y := quadraticData(30, 16)
	reg := NewFTRegress(ftrain.UniformLegendre(2, 3, -1, 1), []int{1, 1, 1}, AIO, LS)
	reg.SetAdapt(true)
	reg.SetMaxRank(2)
	reg.SetKFold(3)
	opt := NewOptimizer(LBFGS)

	reg.Fit(opt, x, y)
	require.NotEmpty(t, reg.History)
	history := slices.Clone(reg.History)
	kept := &reg.History[0]

	NewCrossValidate(x, y, 2, 3, 0).Run(reg, opt)
	assert.Equal(t, history, reg.History)
	assert.Same(t, kept, &reg.History[0])
}

func TestDumpHistory(t *testing.T) {
	reg := NewFTRegress(ftrain.UniformLegendre(2, 2, -1, 1), []int{1, 1, 1}, AIO, LS)
	reg.History = []AdaptStep{{Ranks: []int{1, 1, 1}, CVError: 0.5, Accepted: true}, {Iteration: 1, Ranks: []int{1, 2, 1}, CVError: 0.7}}
	fileName := path.Join(t.TempDir(), "history.json")
	reg.DumpHistory(fileName)

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	var dump historyDump
	require.NoError(t, json.Unmarshal(data, &dump))
	assert.Equal(t, reg.History, dump.Steps)
}
