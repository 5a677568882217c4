package ftrl

import (
	"path"
	"testing"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawGraph(t *testing.T) {
	ft := ftrain.Zeros(mixedOpts(), []int{1, 2, 3, 1})
	graphViz, graph := DrawGraph(ft)
	defer func() {
		require.NoError(t, graph.Close())
		graphViz.Close()
	}()
	assert.Equal(t, 3, graph.NumberNodes())
	assert.Equal(t, 2, graph.NumberEdges())
	assert.Contains(t, coreDescription(ft, 1), "2 x 3")
	assert.Contains(t, coreDescription(ft, 1), "kernel")
}

func TestRenderTrainRejectsUnknownFormat(t *testing.T) {
	ft := ftrain.Constant(1, ftrain.UniformLegendre(2, 2, -1, 1))
	err := RenderTrain(ft, path.Join(t.TempDir(), "train.gif"), "gif")
	assert.Error(t, err)
}
