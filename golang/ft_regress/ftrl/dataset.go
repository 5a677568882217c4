package ftrl

import (
	"fmt"
	"log"
	"os"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//Dataset contains the inputs and the labels of a regression problem.
type Dataset struct {
	Features    *mat.Dense
	Target      *mat.Dense
	Description *string
}

//NewDataset wraps row by row inputs and labels.
func NewDataset(x, y []float64, dim int) Dataset {
	return Dataset{
		Features: mat.NewDense(len(y), dim, x),
		Target:   mat.NewDense(len(y), 1, y),
	}
}

//SetDescription sets a description for the dataset.
func (ds *Dataset) SetDescription(description string) {
	ds.Description = &description
}

func (ds Dataset) description() string {
	if ds.Description == nil {
		return ""
	}
	return *ds.Description
}

//ReadDataset reads the inputs and the labels from two npy files.
func ReadDataset(fileNameFeatures, fileNameTarget string) (ds Dataset) {
	log.Print("\ttry to load features <", fileNameFeatures, ">")
	ds.Features = ReadNpy(fileNameFeatures)
	log.Print("\ttry to load target <", fileNameTarget, ">")
	ds.Target = ReadNpy(fileNameTarget)
	ds.validatedDimensions()
	return
}

//ReadNpy reads the content of npy file.
func ReadNpy(fileName string) (denseMat *mat.Dense) {
	f, err := os.Open(fileName)
	HandleError(err)
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	HandleError(err)

	denseMat = &mat.Dense{}
	HandleError(r.Read(denseMat))
	return
}

//WriteNpy stores a matrix into an npy file.
func WriteNpy(fileName string, m *mat.Dense) error {
	dst, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("can't create %s: %w", fileName, err)
	}
	if err := npyio.Write(dst, m); err != nil {
		_ = dst.Close()
		return fmt.Errorf("can't write %s: %w", fileName, err)
	}
	return dst.Close()
}

//validatedDimensions checks that there is one label per input row and returns
//the number of samples and the dimension of the inputs.
func (ds Dataset) validatedDimensions() (h, w int) {
	h, w = ds.Features.Dims()
	targetH, targetW := ds.Target.Dims()
	if targetH != h {
		log.Panicf("the target height %d is not equal to the features height %d", targetH, h)
	}
	if targetW != 1 {
		log.Panicf("the width of target should be 1 not %d", targetW)
	}
	return h, w
}

//XY returns the inputs row by row and the labels.
func (ds Dataset) XY() (x, y []float64) {
	ds.validatedDimensions()
	return RowMajor(ds.Features), RowMajor(ds.Target)
}

//Predict evaluates ft at every input of the dataset.
func (ds Dataset) Predict(ft *ftrain.FunctionTrain) *mat.Dense {
	h, w := ds.Features.Dims()
	if w != ft.Dim() {
		log.Panicf("features of width %d for a model of dimension %d", w, ft.Dim())
	}
	x := RowMajor(ds.Features)
	return mat.NewDense(h, 1, ft.EvalMany(x, h, nil))
}

//RelativeError is sum((y - f(x))^2) / sum(y^2) over the dataset.
func (ds Dataset) RelativeError(ft *ftrain.FunctionTrain) float64 {
	ds.validatedDimensions()
	prediction := ds.Predict(ft)
	errSum, norm := 0.0, 0.0
	for p := 0; p < Height(prediction); p++ {
		d := ds.Target.At(p, 0) - prediction.At(p, 0)
		errSum += d * d
		norm += ds.Target.At(p, 0) * ds.Target.At(p, 0)
	}
	return errSum / norm
}

//Message logs the relative error of ft on the dataset and returns it.
func (ds Dataset) Message(ft *ftrain.FunctionTrain) float64 {
	relErr := ds.RelativeError(ft)
	log.Print("relative error for ", ds.description(), " = ", relErr)
	return relErr
}
