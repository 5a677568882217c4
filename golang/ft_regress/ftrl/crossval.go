package ftrl

import (
	"log"
)

//CrossValidate scores a regressor by k-fold cross validation over contiguous folds.
//The samples are only read.
type CrossValidate struct {
	X       []float64
	Y       []float64
	N       int
	Dim     int
	KFold   int
	Verbose int
}

//NewCrossValidate creates a k-fold cross validation over len(y) points of dimension dim
//stored row by row in x.
func NewCrossValidate(x, y []float64, dim, kfold, verbose int) *CrossValidate {
	n := len(y)
	if dim <= 0 || len(x) != n*dim {
		log.Panicf("%d inputs for %d labels of dimension %d", len(x), n, dim)
	}
	if kfold < 2 || kfold > n {
		log.Panicf("can't split %d samples into %d folds", n, kfold)
	}
	return &CrossValidate{X: x, Y: y, N: n, Dim: dim, KFold: kfold, Verbose: verbose}
}

//foldBounds returns the first sample and the size of a fold. The last fold takes the remainder.
func (cv *CrossValidate) foldBounds(fold int) (start, size int) {
	batch := cv.N / cv.KFold
	start = fold * batch
	if fold == cv.KFold-1 {
		return start, cv.N - start
	}
	return start, batch
}

//ExtractData copies the samples [start, start+size) into the test set and all the others,
//in their original order, into the train set.
func (cv *CrossValidate) ExtractData(start, size int) (xTest, yTest, xTrain, yTrain []float64) {
	dim := cv.Dim
	end := start + size
	xTest = append([]float64(nil), cv.X[start*dim:end*dim]...)
	yTest = append([]float64(nil), cv.Y[start:end]...)

	xTrain = make([]float64, 0, (cv.N-size)*dim)
	xTrain = append(xTrain, cv.X[:start*dim]...)
	xTrain = append(xTrain, cv.X[end*dim:]...)
	yTrain = make([]float64, 0, cv.N-size)
	yTrain = append(yTrain, cv.Y[:start]...)
	yTrain = append(yTrain, cv.Y[end:]...)
	return
}

//Run trains reg on every fold complement and returns the sum of the squared test errors
//divided by the sum of the squared test labels. Every fold starts from the parameters
//reg had on entry and reg gets them back at the end.
func (cv *CrossValidate) Run(reg *FTRegress, opt Minimizer) float64 {
	state := reg.snapshot()
	history := reg.History
	defer func() { reg.History = history }()
	if cv.Verbose > 0 {
		log.Printf("running %d-fold cross validation from parameters %x", cv.KFold, Fingerprint(state.params))
	}

	errSum, norm := 0.0, 0.0
	for fold := 0; fold < cv.KFold; fold++ {
		start, size := cv.foldBounds(fold)
		xTest, yTest, xTrain, yTrain := cv.ExtractData(start, size)

		ft := reg.Fit(opt, xTrain, yTrain)
		foldErr, foldNorm := 0.0, 0.0
		for s, label := range yTest {
			d := label - ft.Eval(xTest[s*cv.Dim:(s+1)*cv.Dim])
			foldErr += d * d
			foldNorm += label * label
		}
		if cv.Verbose > 1 {
			log.Printf("\tfold %d of size %d: error = %g, norm = %g", fold, size, foldErr/float64(size), foldNorm/float64(size))
		}
		errSum += foldErr
		norm += foldNorm

		reg.restore(state)
	}

	relErr := errSum / norm
	if cv.Verbose > 0 {
		log.Printf("cv error = %g, norm = %g, relative error = %g", errSum/float64(cv.N), norm/float64(cv.N), relErr)
	}
	return relErr
}
