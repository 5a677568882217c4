package ftrain

import "log"

//ApproxOpts holds the univariate family used for every input dimension.
type ApproxOpts struct {
	families []Family
}

//NewApproxOpts creates approximation options from one family per dimension.
func NewApproxOpts(families ...Family) *ApproxOpts {
	if len(families) == 0 {
		log.Panic("approximation options need at least one dimension")
	}
	return &ApproxOpts{families: families}
}

//NewApproxOptsFromSpecs builds the families described by specs.
func NewApproxOptsFromSpecs(specs []FamilySpec) (*ApproxOpts, error) {
	families := make([]Family, len(specs))
	for ind, spec := range specs {
		family, err := spec.Build()
		if err != nil {
			return nil, err
		}
		families[ind] = family
	}
	return NewApproxOpts(families...), nil
}

//UniformLegendre uses the same polynomial family on every dimension.
func UniformLegendre(dim, numParams int, lb, ub float64) *ApproxOpts {
	families := make([]Family, dim)
	for ind := range families {
		families[ind] = NewLegendre(numParams, lb, ub)
	}
	return NewApproxOpts(families...)
}

func (opts *ApproxOpts) Dim() int { return len(opts.families) }
func (opts *ApproxOpts) Family(dim int) Family { return opts.families[dim] }
func (opts *ApproxOpts) NumParams(dim int) int { return opts.families[dim].NumParams() }

//IsLinear reports whether the family of the dimension is linear in its parameters.
func (opts *ApproxOpts) IsLinear(dim int) bool {
	_, ok := opts.families[dim].(LinearFamily)
	return ok
}

//AllLinear reports whether every dimension is linear in its parameters.
func (opts *ApproxOpts) AllLinear() bool {
	for dim := range opts.families {
		if !opts.IsLinear(dim) {
			return false
		}
	}
	return true
}

//Orthonormal reports whether every dimension uses an orthonormal basis.
func (opts *ApproxOpts) Orthonormal() bool {
	for _, family := range opts.families {
		if !family.Orthonormal() {
			return false
		}
	}
	return true
}

//Specs returns the serialisable description of every dimension.
func (opts *ApproxOpts) Specs() []FamilySpec {
	specs := make([]FamilySpec, len(opts.families))
	for ind, family := range opts.families {
		specs[ind] = family.Spec()
	}
	return specs
}

//WithNumParams returns a copy of the options where every dimension has numParams parameters.
func (opts *ApproxOpts) WithNumParams(numParams int) *ApproxOpts {
	specs := opts.Specs()
	for ind := range specs {
		specs[ind].NumParams = numParams
	}
	out, err := NewApproxOptsFromSpecs(specs)
	if err != nil {
		log.Panicf("can't rebuild approximation options: %v", err)
	}
	return out
}
