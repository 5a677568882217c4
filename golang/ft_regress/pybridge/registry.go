// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrl"
)

//model is what a handle refers to. reg is nil for models loaded from a file.
type model struct {
	reg *ftrl.FTRegress
	ft  *ftrain.FunctionTrain
}

var (
	handleMu   sync.Mutex
	nextHandle uint64 = 1
	models            = make(map[uint64]*model)

	lastErrorMu sync.Mutex
	lastError   string
)

var errInvalidHandle = errors.New("invalid model handle")

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func storeModel(m *model) uint64 {
	handleMu.Lock()
	defer handleMu.Unlock()
	handle := nextHandle
	models[handle] = m
	nextHandle++
	return handle
}

func fetchModel(handle uint64) (*model, error) {
	handleMu.Lock()
	defer handleMu.Unlock()
	m, ok := models[handle]
	if !ok {
		return nil, errInvalidHandle
	}
	return m, nil
}

func freeModel(handle uint64) {
	handleMu.Lock()
	defer handleMu.Unlock()
	delete(models, handle)
}

//guard runs call and turns a panic of the library into an error.
func guard(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = rErr
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return call()
}

//fit trains the regressor described by the json config on n samples of dimension dim.
func fit(x, y []float64, dim int, config []byte) (*model, error) {
	rc, err := ftrl.ParseRegressorConfig(config)
	if err != nil {
		return nil, err
	}
	var m *model
	err = guard(func() error {
		reg, opt, err := rc.Build()
		if err != nil {
			return err
		}
		if reg.Dim() != dim {
			return fmt.Errorf("inputs of dimension %d for a regressor of dimension %d", dim, reg.Dim())
		}
		m = &model{reg: reg, ft: reg.Fit(opt, x, y)}
		return nil
	})
	return m, err
}

//crossValidate scores the regressor described by the json config.
func crossValidate(x, y []float64, dim, kfold int, config []byte) (float64, error) {
	rc, err := ftrl.ParseRegressorConfig(config)
	if err != nil {
		return 0, err
	}
	var cvErr float64
	err = guard(func() error {
		reg, opt, err := rc.Build()
		if err != nil {
			return err
		}
		cvErr = ftrl.NewCrossValidate(x, y, dim, kfold, rc.Verbose).Run(reg, opt)
		return nil
	})
	return cvErr, err
}

func (m *model) predict(x []float64, rows int) ([]float64, error) {
	if rows == 0 {
		return nil, nil
	}
	if len(x) != rows*m.ft.Dim() {
		return nil, fmt.Errorf("%d inputs for %d rows of dimension %d", len(x), rows, m.ft.Dim())
	}
	return m.ft.EvalMany(x, rows, nil), nil
}

func (m *model) dumpHistory(fileName string) error {
	if m.reg == nil {
		return errors.New("a loaded model has no adaptation history")
	}
	return guard(func() error {
		m.reg.DumpHistory(fileName)
		return nil
	})
}
