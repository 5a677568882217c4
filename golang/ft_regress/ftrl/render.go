package ftrl

import (
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
)

func coreDescription(ft *ftrain.FunctionTrain, k int) string {
	core := ft.Cores[k]
	spec := core.Family.Spec()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("core", k))
	sb.WriteString(fmt.Sprintf("%d x %d\n", core.Rows, core.Cols))
	sb.WriteString(fmt.Sprintf("%s, %d params\n", spec.Kind, spec.NumParams))
	sb.WriteString(fmt.Sprintf("[%g, %g]", spec.Lb, spec.Ub))
	return sb.String()
}

//DrawGraph draws the cores of a train as a chain labelled by the ranks.
func DrawGraph(ft *ftrain.FunctionTrain) (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	HandleError(err)

	var parentNode *cgraph.Node
	for k := range ft.Cores {
		currentNode, err := graph.CreateNode(fmt.Sprint("core_", k))
		HandleError(err)
		currentNode.Set("label", coreDescription(ft, k))
		currentNode.Set("shape", "box")
		if parentNode != nil {
			edge, err := graph.CreateEdge("", parentNode, currentNode)
			HandleError(err)
			edge.SetLabel(fmt.Sprint("r = ", ft.Ranks[k]))
		}
		parentNode = currentNode
	}
	return graphViz, graph
}

//RenderTrain renders the graph of ft into filename. figureType is png, svg or jpg.
func RenderTrain(ft *ftrain.FunctionTrain, filename, figureType string) error {
	graphvizType, ok := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]
	if !ok {
		return fmt.Errorf("unknown figure type %q", figureType)
	}

	graphViz, graph := DrawGraph(ft)
	defer func() {
		HandleError(graph.Close())
		graphViz.Close()
	}()
	return graphViz.RenderFilename(graph, graphvizType, filename)
}
