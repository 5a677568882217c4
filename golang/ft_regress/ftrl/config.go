package ftrl

import (
	"encoding/json"
	"fmt"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
)

//RegressorConfig describes a regressor and its optimizer. Zero values keep the library defaults.
type RegressorConfig struct {
	Families      []ftrain.FamilySpec `json:"families"`
	Ranks         []int               `json:"ranks"`
	RegType       string              `json:"reg_type"`
	RegObj        string              `json:"reg_obj"`
	RegWeight     float64             `json:"reg_weight"`
	MaxALSSweeps  int                 `json:"max_als_sweeps"`
	ALSConvTol    float64             `json:"als_conv_tol"`
	Method        string              `json:"method"`
	MaxIter       int                 `json:"max_iter"`
	Adapt         bool                `json:"adapt"`
	KickRank      int                 `json:"kick_rank"`
	MaxRank       int                 `json:"max_rank"`
	RoundTol      float64             `json:"round_tol"`
	KFold         int                 `json:"kfold"`
	SkipFinalize  bool                `json:"skip_finalize"`
	OptRestricted bool                `json:"opt_restricted"`
	Seed          uint64              `json:"seed"`
	Verbose       int                 `json:"verbose"`
}

//ParseRegressorConfig decodes a json description of a regressor.
func ParseRegressorConfig(data []byte) (RegressorConfig, error) {
	var rc RegressorConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return rc, fmt.Errorf("can't decode regressor config: %w", err)
	}
	return rc, nil
}

func orDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

//Build creates the regressor and the optimizer described by the config.
func (rc RegressorConfig) Build() (*FTRegress, *Optimizer, error) {
	if len(rc.Families) == 0 {
		return nil, nil, fmt.Errorf("regressor config has no families")
	}
	opts, err := ftrain.NewApproxOptsFromSpecs(rc.Families)
	if err != nil {
		return nil, nil, err
	}
	regType, err := ParseRegType(orDefault(rc.RegType, "aio"))
	if err != nil {
		return nil, nil, err
	}
	regObj, err := ParseRegObj(orDefault(rc.RegObj, "ls"))
	if err != nil {
		return nil, nil, err
	}
	method, err := ParseMethod(rc.Method)
	if err != nil {
		return nil, nil, err
	}

	ranks := rc.Ranks
	if ranks == nil {
		ranks = make([]int, opts.Dim()+1)
		for ind := range ranks {
			ranks[ind] = 1
		}
	}
	if len(ranks) != opts.Dim()+1 || ranks[0] != 1 || ranks[opts.Dim()] != 1 {
		return nil, nil, fmt.Errorf("ranks %v don't fit %d dimensions", ranks, opts.Dim())
	}
	for _, rank := range ranks {
		if rank <= 0 {
			return nil, nil, fmt.Errorf("ranks should be positive, got %v", ranks)
		}
	}
	if rc.KFold == 1 || rc.KFold < 0 {
		return nil, nil, fmt.Errorf("at least two folds are needed, got %d", rc.KFold)
	}

	reg := NewFTRegress(opts, ranks, regType, regObj)
	reg.SetVerbose(rc.Verbose)
	reg.SetSeed(rc.Seed)
	if rc.RegWeight != 0 {
		reg.SetRegWeight(rc.RegWeight)
	}
	if rc.MaxALSSweeps != 0 {
		reg.RegOpts.MaxALSSweeps = rc.MaxALSSweeps
	}
	if rc.ALSConvTol != 0 {
		reg.RegOpts.ALSConvTol = rc.ALSConvTol
	}
	reg.SetAdapt(rc.Adapt)
	if rc.KickRank != 0 {
		reg.SetKickRank(rc.KickRank)
	}
	if rc.MaxRank != 0 {
		reg.SetMaxRank(rc.MaxRank)
	}
	if rc.RoundTol != 0 {
		reg.SetRoundTol(rc.RoundTol)
	}
	if rc.KFold != 0 {
		reg.SetKFold(rc.KFold)
	}
	if rc.Adapt && !allAtMostMax(ranks, reg.maxRank) {
		return nil, nil, fmt.Errorf("initial ranks %v exceed the maximal rank %d", ranks, reg.maxRank)
	}
	reg.SetFinalize(!rc.SkipFinalize)
	reg.SetOptRestricted(rc.OptRestricted)

	opt := NewOptimizer(method)
	opt.Verbose = rc.Verbose
	if rc.MaxIter != 0 {
		opt.MaxIter = rc.MaxIter
	}
	return reg, opt, nil
}
