// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"io"
	"log"
	"sync"
	"unsafe"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrl"
	"golang.org/x/exp/slices"
)

var logSilenceOnce sync.Once

//doubles views length C doubles as a Go slice without copying.
func doubles(ptr *C.double, length int) ([]float64, error) {
	switch {
	case length < 0:
		return nil, errors.New("negative length")
	case length == 0:
		return nil, nil
	case ptr == nil:
		return nil, errors.New("null pointer for non-empty slice")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length), nil
}

//samples copies rows inputs of dimension dim and, when targetPtr is not nil, their labels.
func samples(inputsPtr *C.double, rows, dim C.int, targetPtr *C.double) (x, y []float64, err error) {
	if rows <= 0 || dim <= 0 {
		return nil, nil, errors.New("rows and dimension must be positive")
	}
	view, err := doubles(inputsPtr, int(rows)*int(dim))
	if err != nil {
		return nil, nil, err
	}
	x = slices.Clone(view)
	if targetPtr != nil {
		if view, err = doubles(targetPtr, int(rows)); err != nil {
			return nil, nil, err
		}
		y = slices.Clone(view)
	}
	return x, y, nil
}

//export FitModel
func FitModel(inputsPtr *C.double, rows, dim C.int, targetPtr *C.double, config *C.char) C.ulonglong {
	setLastError(nil)
	logSilenceOnce.Do(func() {
		log.SetOutput(io.Discard)
	})

	x, y, err := samples(inputsPtr, rows, dim, targetPtr)
	if err == nil && y == nil {
		err = errors.New("null pointer for the target")
	}
	if err != nil {
		setLastError(err)
		return 0
	}
	m, err := fit(x, y, int(dim), []byte(C.GoString(config)))
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeModel(m))
}

//export CrossValidate
func CrossValidate(inputsPtr *C.double, rows, dim C.int, targetPtr *C.double, config *C.char, kfold C.int, cvErrPtr *C.double) C.int {
	setLastError(nil)
	x, y, err := samples(inputsPtr, rows, dim, targetPtr)
	if err == nil && y == nil {
		err = errors.New("null pointer for the target")
	}
	if err != nil {
		setLastError(err)
		return 1
	}
	cvErr, err := crossValidate(x, y, int(dim), int(kfold), []byte(C.GoString(config)))
	if err != nil {
		setLastError(err)
		return 2
	}
	if cvErrPtr == nil {
		setLastError(errors.New("null pointer for the result"))
		return 3
	}
	*cvErrPtr = C.double(cvErr)
	return 0
}

//export Predict
func Predict(handle C.ulonglong, inputsPtr *C.double, rows, dim C.int, outputPtr *C.double) C.int {
	setLastError(nil)
	m, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	x, _, err := samples(inputsPtr, rows, dim, nil)
	if err != nil {
		setLastError(err)
		return 2
	}
	prediction, err := m.predict(x, int(rows))
	if err != nil {
		setLastError(err)
		return 3
	}
	outSlice, err := doubles(outputPtr, int(rows))
	if err != nil {
		setLastError(err)
		return 4
	}
	copy(outSlice, prediction)
	return 0
}

//export GetRanks
func GetRanks(handle C.ulonglong, ranksPtr *C.int, length C.int) C.int {
	setLastError(nil)
	m, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if ranksPtr == nil || int(length) < len(m.ft.Ranks) {
		setLastError(errors.New("the ranks don't fit into the buffer"))
		return 2
	}
	out := unsafe.Slice(ranksPtr, int(length))
	for ind, rank := range m.ft.Ranks {
		out[ind] = C.int(rank)
	}
	return 0
}

//export SaveModel
func SaveModel(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	m, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := ftrl.SaveModel(m.ft, C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export LoadModel
func LoadModel(path *C.char) C.ulonglong {
	setLastError(nil)
	ft, err := ftrl.LoadModel(C.GoString(path))
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeModel(&model{ft: ft}))
}

//export RenderModel
func RenderModel(handle C.ulonglong, path, figureType *C.char) C.int {
	setLastError(nil)
	m, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	goFigureType := C.GoString(figureType)
	if goFigureType == "" {
		goFigureType = "svg"
	}
	err = guard(func() error {
		return ftrl.RenderTrain(m.ft, C.GoString(path), goFigureType)
	})
	if err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export DumpHistory
func DumpHistory(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	m, err := fetchModel(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := m.dumpHistory(C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export FreeModel
func FreeModel(handle C.ulonglong) {
	freeModel(uint64(handle))
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
