package ftrl

import (
	"path"
	"testing"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReadDataset(t *testing.T) {
	x, y := generateGridData(4, -1, 1, func(u, v float64) float64 { return u - v })
	dir := t.TempDir()
	featuresFile, targetFile := path.Join(dir, "features.npy"), path.Join(dir, "target.npy")
	require.NoError(t, WriteNpy(featuresFile, mat.NewDense(16, 2, x)))
	require.NoError(t, WriteNpy(targetFile, mat.NewDense(16, 1, y)))

	ds := ReadDataset(featuresFile, targetFile)
	xRead, yRead := ds.XY()
	assert.Equal(t, x, xRead)
	assert.Equal(t, y, yRead)
}

func TestReadDatasetRejectsMismatchedHeights(t *testing.T) {
	dir := t.TempDir()
	featuresFile, targetFile := path.Join(dir, "features.npy"), path.Join(dir, "target.npy")
	require.NoError(t, WriteNpy(featuresFile, mat.NewDense(3, 2, nil)))
	require.NoError(t, WriteNpy(targetFile, mat.NewDense(4, 1, nil)))
	require.Panics(t, func() { ReadDataset(featuresFile, targetFile) })
}

func TestRelativeError(t *testing.T) {
	opts := ftrain.UniformLegendre(2, 2, -1, 1)
	x, y := generateGridData(5, -1, 1, func(u, v float64) float64 { return u + v + 3 })
	ds := NewDataset(x, y, 2)
	ds.SetDescription("train")

	exact := ftrain.LinearSum([]float64{1, 1}, []float64{3, 0}, opts)
	assert.InDelta(t, 0, ds.Message(exact), 1e-20)

	zero := ftrain.Zeros(opts, []int{1, 1, 1})
	assert.InDelta(t, 1, ds.RelativeError(zero), 1e-15)
	assert.Equal(t, mat.NewDense(25, 1, make([]float64, 25)), ds.Predict(zero))
	require.Panics(t, func() { ds.Predict(ftrain.Zeros(ftrain.UniformLegendre(3, 2, -1, 1), []int{1, 1, 1, 1})) })
}
