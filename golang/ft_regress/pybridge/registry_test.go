// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumConfig = `{
	"families": [
		{"kind": "legendre", "num_params": 2, "lb": -1, "ub": 1},
		{"kind": "legendre", "num_params": 2, "lb": -1, "ub": 1}
	],
	"ranks": [1, 2, 1],
	"reg_type": "aio",
	"seed": 3
}`

func gridSamples() (x, y []float64) {
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			u, v := -1+0.4*float64(i), -1+0.4*float64(j)
			x = append(x, u, v)
			y = append(y, u+v)
		}
	}
	return
}

func TestFitPredictFree(t *testing.T) {
	x, y := gridSamples()
	m, err := fit(x, y, 2, []byte(sumConfig))
	require.NoError(t, err)
	handle := storeModel(m)

	fetched, err := fetchModel(handle)
	require.NoError(t, err)
	prediction, err := fetched.predict(x[:4], 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y[:2], prediction, 1e-6)
	_, err = fetched.predict(x[:3], 2)
	assert.Error(t, err)

	fileName := path.Join(t.TempDir(), "history.json")
	assert.NoError(t, fetched.dumpHistory(fileName))

	freeModel(handle)
	_, err = fetchModel(handle)
	assert.ErrorIs(t, err, errInvalidHandle)
}

func TestFitReportsLibraryErrors(t *testing.T) {
	x, y := gridSamples()
	_, err := fit(x, y, 3, []byte(sumConfig))
	assert.Error(t, err)
	_, err = fit(x, y, 2, []byte(`{"families": []}`))
	assert.Error(t, err)
	_, err = fit(x, y, 2, []byte(`{"families": `))
	assert.Error(t, err)
	_, err = fit(x, y[:5], 2, []byte(sumConfig))
	assert.Error(t, err, "a panic of the library becomes an error")
}

func TestCrossValidateThroughBridge(t *testing.T) {
	x, y := gridSamples()
	cvErr, err := crossValidate(x, y, 2, 4, []byte(sumConfig))
	require.NoError(t, err)
	assert.Less(t, cvErr, 1e-6)

	_, err = crossValidate(x, y, 2, 1, []byte(sumConfig))
	assert.Error(t, err)
}

func TestGuard(t *testing.T) {
	sentinel := errors.New("sentinel")
	assert.NoError(t, guard(func() error { return nil }))
	assert.ErrorIs(t, guard(func() error { panic(sentinel) }), sentinel)
	assert.EqualError(t, guard(func() error { panic("bad shape") }), "bad shape")
}

func TestLastError(t *testing.T) {
	setLastError(errors.New("boom"))
	assert.Equal(t, "boom", getLastError())
	setLastError(nil)
	assert.Empty(t, getLastError())

	loaded := &model{}
	assert.Error(t, loaded.dumpHistory("unused.json"))
}
