package ftrl

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"
)

//HandleError panics on a non nil error.
func HandleError(err error) {
	if err != nil {
		panic(err)
	}
}

//Height returns the number of rows of a matrix.
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//RowMajor copies a matrix into a row by row slice.
func RowMajor(m mat.Matrix) []float64 {
	h, w := m.Dims()
	out := make([]float64, h*w)
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			out[p*w+q] = m.At(p, q)
		}
	}
	return out
}

//Fingerprint hashes a parameter vector bit by bit.
func Fingerprint(params []float64) uint64 {
	digest := xxhash.New()
	var buf [8]byte
	for _, val := range params {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(val))
		_, _ = digest.Write(buf[:])
	}
	return digest.Sum64()
}
