package ftrl

import (
	"fmt"
	"log"
	"math"
	"strings"
)

//ParamName names a hyperparameter the grid search can tune.
type ParamName int

const (
	RankParam ParamName = iota
	NumParamParam
	OptMaxIterParam
	RegWeightParam
)

//ParamType is the type tag of a hyperparameter value.
type ParamType int

const (
	Unsigned ParamType = iota
	Double
	Signed
)

//maxGridParams is the largest number of hyperparameters tuned together.
const maxGridParams = 3

type paramInfo struct {
	name string
	typ  ParamType
}

var regParams = map[ParamName]paramInfo{
	RankParam:       {"rank", Unsigned},
	NumParamParam:   {"num_param", Unsigned},
	OptMaxIterParam: {"opt_maxiter", Signed},
	RegWeightParam:  {"reg_weight", Double},
}

var paramByName = func() map[string]ParamName {
	out := make(map[string]ParamName, len(regParams))
	for param, info := range regParams {
		out[info.name] = param
	}
	return out
}()

func (p ParamName) String() string {
	if info, ok := regParams[p]; ok {
		return info.name
	}
	return fmt.Sprintf("ParamName(%d)", int(p))
}

//Type returns the type tag of the parameter.
func (p ParamName) Type() ParamType {
	return regParams[p].typ
}

//ParseParamName converts a hyperparameter name into a ParamName.
func ParseParamName(name string) (ParamName, error) {
	if param, ok := paramByName[name]; ok {
		return param, nil
	}
	return 0, fmt.Errorf("unknown hyperparameter %q", name)
}

//RegParameter is one value of a hyperparameter. Only the field matching Type is used.
type RegParameter struct {
	Name ParamName
	Type ParamType
	UVal uint
	DVal float64
	IVal int
}

func (p RegParameter) String() string {
	switch p.Type {
	case Double:
		return fmt.Sprintf("%s=%.5g", p.Name, p.DVal)
	case Signed:
		return fmt.Sprintf("%s=%d", p.Name, p.IVal)
	}
	return fmt.Sprintf("%s=%d", p.Name, p.UVal)
}

//CVCase is one point of the grid together with its cross validation error.
type CVCase struct {
	Params []RegParameter
	Err    float64
}

func (c CVCase) String() string {
	parts := make([]string, len(c.Params))
	for ind, p := range c.Params {
		parts[ind] = p.String()
	}
	return strings.Join(parts, " ")
}

//CVOptGrid holds the candidate values of up to three hyperparameters.
type CVOptGrid struct {
	Verbose int
	names   []ParamName
	values  [][]RegParameter
}

//NewCVOptGrid creates an empty grid.
func NewCVOptGrid(verbose int) *CVOptGrid {
	return &CVOptGrid{Verbose: verbose}
}

//NumParams returns the number of hyperparameters of the grid.
func (g *CVOptGrid) NumParams() int {
	return len(g.names)
}

//AddParam adds a hyperparameter with its candidates. The values must be []uint,
//[]float64 or []int according to the type of the parameter.
func (g *CVOptGrid) AddParam(name string, values interface{}) error {
	param, err := ParseParamName(name)
	if err != nil {
		return err
	}
	if len(g.names) == maxGridParams {
		return fmt.Errorf("can't tune more than %d hyperparameters together", maxGridParams)
	}
	for _, known := range g.names {
		if known == param {
			return fmt.Errorf("hyperparameter %s added twice", param)
		}
	}

	var candidates []RegParameter
	switch vals := values.(type) {
	case []uint:
		if param.Type() != Unsigned {
			return fmt.Errorf("hyperparameter %s doesn't take unsigned values", param)
		}
		for _, v := range vals {
			candidates = append(candidates, RegParameter{Name: param, Type: Unsigned, UVal: v})
		}
	case []float64:
		if param.Type() != Double {
			return fmt.Errorf("hyperparameter %s doesn't take floating point values", param)
		}
		for _, v := range vals {
			candidates = append(candidates, RegParameter{Name: param, Type: Double, DVal: v})
		}
	case []int:
		if param.Type() != Signed {
			return fmt.Errorf("hyperparameter %s doesn't take signed values", param)
		}
		for _, v := range vals {
			candidates = append(candidates, RegParameter{Name: param, Type: Signed, IVal: v})
		}
	default:
		return fmt.Errorf("unsupported candidates %T for hyperparameter %s", values, param)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("hyperparameter %s has no candidates", param)
	}

	g.names = append(g.names, param)
	g.values = append(g.values, candidates)
	return nil
}

//AddParamFloats converts the candidates to the type of the parameter and adds them.
//It serves configurations where every number is decoded as a float.
func (g *CVOptGrid) AddParamFloats(name string, values []float64) error {
	param, err := ParseParamName(name)
	if err != nil {
		return err
	}
	switch param.Type() {
	case Unsigned:
		out := make([]uint, len(values))
		for ind, v := range values {
			if v < 0 || v != math.Trunc(v) {
				return fmt.Errorf("hyperparameter %s takes unsigned integers, got %g", param, v)
			}
			out[ind] = uint(v)
		}
		return g.AddParam(name, out)
	case Signed:
		out := make([]int, len(values))
		for ind, v := range values {
			if v != math.Trunc(v) {
				return fmt.Errorf("hyperparameter %s takes integers, got %g", param, v)
			}
			out[ind] = int(v)
		}
		return g.AddParam(name, out)
	}
	return g.AddParam(name, values)
}

//SetupCases enumerates the Cartesian product of the candidates. The first parameter
//varies the slowest.
func (g *CVOptGrid) SetupCases() []CVCase {
	if len(g.names) == 0 {
		log.Panicf("the grid has no hyperparameters")
	}
	cases := []CVCase{{}}
	for _, candidates := range g.values {
		next := make([]CVCase, 0, len(cases)*len(candidates))
		for _, prefix := range cases {
			for _, candidate := range candidates {
				params := make([]RegParameter, len(prefix.Params), len(prefix.Params)+1)
				copy(params, prefix.Params)
				next = append(next, CVCase{Params: append(params, candidate)})
			}
		}
		cases = next
	}
	return cases
}

//ApplyCase sets the hyperparameters of the case. The model is always rebuilt with zero
//parameters, at the rank and the number of parameters of the case when it has them.
func (reg *FTRegress) ApplyCase(c CVCase, opt *Optimizer) {
	ranks := reg.ftp.Ranks()
	opts := reg.opts
	for _, p := range c.Params {
		switch p.Name {
		case RankParam:
			if p.UVal == 0 {
				log.Panicf("rank must be positive")
			}
			for k := 1; k < len(ranks)-1; k++ {
				ranks[k] = int(p.UVal)
			}
		case NumParamParam:
			opts = opts.WithNumParams(int(p.UVal))
		}
	}
	reg.ResetParam(opts, ranks)

	for _, p := range c.Params {
		switch p.Name {
		case RegWeightParam:
			reg.SetRegWeight(p.DVal)
		case OptMaxIterParam:
			if opt != nil {
				opt.MaxIter = p.IVal
			}
		}
	}
}

//GridOptimize scores every case of the grid by cross validation, applies the best one
//to reg and returns it with every scored case. An earlier case wins ties.
func GridOptimize(cv *CrossValidate, grid *CVOptGrid, reg *FTRegress, opt *Optimizer) (CVCase, []CVCase) {
	cases := grid.SetupCases()
	best, bestErr := 0, math.MaxFloat64
	for ind := range cases {
		reg.ApplyCase(cases[ind], opt)
		cases[ind].Err = cv.Run(reg, opt)
		if grid.Verbose > 1 {
			log.Printf("%v : cv error = %.15g", cases[ind], cases[ind].Err)
		}
		if cases[ind].Err < bestErr*(1-1e-9) {
			best, bestErr = ind, cases[ind].Err
		}
	}
	if grid.Verbose > 0 {
		log.Printf("best parameters: %v : cv error = %g", cases[best], bestErr)
	}
	reg.ApplyCase(cases[best], opt)
	return cases[best], cases
}
