package ftrl

import (
	"log"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"golang.org/x/exp/slices"
)

//ParamLayout describes how the parameters of a function train are laid out in one flat vector.
type ParamLayout struct {
	Ranks   []int
	PerUni  []int // parameters of one univariate function of every core
	PerCore []int
	Offsets []int
	Total   int
	MaxUni  int
	MaxCore int
}

//ComputeLayout derives the parameter layout of a train with the given ranks.
func ComputeLayout(ranks []int, opts *ftrain.ApproxOpts) ParamLayout {
	dim := opts.Dim()
	if len(ranks) != dim+1 {
		log.Panicf("%d ranks given for a dimension of %d", len(ranks), dim)
	}
	layout := ParamLayout{
		Ranks:   slices.Clone(ranks),
		PerUni:  make([]int, dim),
		PerCore: make([]int, dim),
		Offsets: make([]int, dim),
	}
	for k := 0; k < dim; k++ {
		nparams := opts.NumParams(k)
		if nparams <= 0 {
			log.Panicf("dimension %d reports %d parameters", k, nparams)
		}
		layout.PerUni[k] = nparams
		layout.PerCore[k] = ranks[k] * ranks[k+1] * nparams
		layout.Offsets[k] = layout.Total
		layout.Total += layout.PerCore[k]
		if nparams > layout.MaxUni {
			layout.MaxUni = nparams
		}
		if layout.PerCore[k] > layout.MaxCore {
			layout.MaxCore = layout.PerCore[k]
		}
	}
	return layout
}

//Dim returns the number of cores.
func (layout ParamLayout) Dim() int {
	return len(layout.PerCore)
}

//CoreOffset returns the position of the first parameter of the core in the flat vector.
func (layout ParamLayout) CoreOffset(core int) int {
	return layout.Offsets[core]
}

//CoreRange returns the half interval [lo, hi) of the core in the flat vector.
func (layout ParamLayout) CoreRange(core int) (lo, hi int) {
	lo = layout.Offsets[core]
	return lo, lo + layout.PerCore[core]
}

//MaxRank returns the largest rank of the layout.
func (layout ParamLayout) MaxRank() int {
	maxRank := 0
	for _, rank := range layout.Ranks {
		if rank > maxRank {
			maxRank = rank
		}
	}
	return maxRank
}

//outsideRestriction tells whether the function at (row, col) of core belongs to the
//capacity beyond the thresholds. Every restricted operation goes through it.
func outsideRestriction(core, row, col int, thresholds []int) bool {
	if core == 0 {
		return col >= thresholds[0]
	}
	return row >= thresholds[core-1] || col >= thresholds[core]
}

//walkRestricted visits, in storage order, every parameter on the requested side of the
//thresholds and passes its position in the flat vector and in the packed subset.
func (layout ParamLayout) walkRestricted(thresholds []int, outside bool, visit func(general, packed int)) int {
	if len(thresholds) != layout.Dim() {
		log.Panicf("%d restriction thresholds given for a dimension of %d", len(thresholds), layout.Dim())
	}
	general, packed := 0, 0
	for k := 0; k < layout.Dim(); k++ {
		for col := 0; col < layout.Ranks[k+1]; col++ {
			for row := 0; row < layout.Ranks[k]; row++ {
				selected := outsideRestriction(k, row, col, thresholds) == outside
				for l := 0; l < layout.PerUni[k]; l++ {
					if selected {
						if visit != nil {
							visit(general, packed)
						}
						packed++
					}
					general++
				}
			}
		}
	}
	return packed
}
