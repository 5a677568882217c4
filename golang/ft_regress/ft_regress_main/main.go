package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrl"
	"gonum.org/v1/gonum/mat"
)

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	ftrl.HandleError(err)
	defer func() { ftrl.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	ftrl.HandleError(decoder.Decode(out))
}

func regressor(rc ftrl.RegressorConfig) (*ftrl.FTRegress, *ftrl.Optimizer) {
	reg, opt, err := rc.Build()
	ftrl.HandleError(err)
	return reg, opt
}

type TestConfig struct {
	Description        string `json:"description"`
	FileNameTestInputs string `json:"filename_test_inputs"`
	FileNameTestTarget string `json:"filename_test_target"`
}

func readTests(testConfigs []TestConfig) []ftrl.Dataset {
	var datasets []ftrl.Dataset
	for _, testConfig := range testConfigs {
		ds := ftrl.ReadDataset(testConfig.FileNameTestInputs, testConfig.FileNameTestTarget)
		ds.SetDescription(testConfig.Description)
		datasets = append(datasets, ds)
	}
	return datasets
}

type TrainConfig struct {
	FileNameTrainInputs string               `json:"filename_train_inputs"`
	FileNameTrainTarget string               `json:"filename_train_target"`
	Tests               []TestConfig         `json:"tests"`
	Model               ftrl.RegressorConfig `json:"model"`
	FileNameModel       string               `json:"filename_model"`
	FileNameHistory     string               `json:"filename_history"`
}

func train(srcConfig string) {
	var trainConfig TrainConfig
	decodeConfig(srcConfig, &trainConfig)

	dsTrain := ftrl.ReadDataset(trainConfig.FileNameTrainInputs, trainConfig.FileNameTrainTarget)
	dsTrain.SetDescription("train")
	dsTests := readTests(trainConfig.Tests)

	reg, opt := regressor(trainConfig.Model)
	x, y := dsTrain.XY()
	ft := reg.Fit(opt, x, y)
	log.Print("ranks of the model: ", ft.Ranks)

	dsTrain.Message(ft)
	for _, ds := range dsTests {
		ds.Message(ft)
	}

	ftrl.HandleError(ftrl.SaveModel(ft, trainConfig.FileNameModel))
	if trainConfig.FileNameHistory != "" {
		reg.DumpHistory(trainConfig.FileNameHistory)
	}
}

type PredictConfig struct {
	InputsFileName     string `json:"filename_inputs"`
	ModelFileName      string `json:"filename_model"`
	PredictionFileName string `json:"filename_target"`
}

func predict(srcConfig string) {
	var predictConfig PredictConfig
	decodeConfig(srcConfig, &predictConfig)

	inputs := ftrl.ReadNpy(predictConfig.InputsFileName)
	ft, err := ftrl.LoadModel(predictConfig.ModelFileName)
	ftrl.HandleError(err)

	h, w := inputs.Dims()
	if w != ft.Dim() {
		log.Panicf("inputs of width %d for a model of dimension %d", w, ft.Dim())
	}
	prediction := mat.NewDense(h, 1, ft.EvalMany(ftrl.RowMajor(inputs), h, nil))
	ftrl.HandleError(ftrl.WriteNpy(predictConfig.PredictionFileName, prediction))
}

type EvaluateConfig struct {
	ModelFileName string       `json:"filename_model"`
	Tests         []TestConfig `json:"tests"`
}

func evaluate(srcConfig string) {
	var evaluateConfig EvaluateConfig
	decodeConfig(srcConfig, &evaluateConfig)

	ft, err := ftrl.LoadModel(evaluateConfig.ModelFileName)
	ftrl.HandleError(err)
	for _, ds := range readTests(evaluateConfig.Tests) {
		relErr := ds.Message(ft)
		log.Print("relative rms error = ", math.Sqrt(relErr))
	}
}

type CVConfig struct {
	FileNameInputs string               `json:"filename_inputs"`
	FileNameTarget string               `json:"filename_target"`
	Model          ftrl.RegressorConfig `json:"model"`
	KFold          int                  `json:"kfold"`
}

func (cvConfig CVConfig) kfold() int {
	if cvConfig.KFold == 0 {
		return 5
	}
	return cvConfig.KFold
}

func crossValidate(srcConfig string) {
	var cvConfig CVConfig
	decodeConfig(srcConfig, &cvConfig)

	ds := ftrl.ReadDataset(cvConfig.FileNameInputs, cvConfig.FileNameTarget)
	reg, opt := regressor(cvConfig.Model)
	x, y := ds.XY()
	cv := ftrl.NewCrossValidate(x, y, reg.Dim(), cvConfig.kfold(), cvConfig.Model.Verbose)
	log.Print("cross validation error = ", cv.Run(reg, opt))
}

type GridParamConfig struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

type GridConfig struct {
	CVConfig
	Params        []GridParamConfig `json:"params"`
	FileNameModel string            `json:"filename_model"`
}

func grid(srcConfig string) {
	var gridConfig GridConfig
	decodeConfig(srcConfig, &gridConfig)

	ds := ftrl.ReadDataset(gridConfig.FileNameInputs, gridConfig.FileNameTarget)
	reg, opt := regressor(gridConfig.Model)
	x, y := ds.XY()
	cv := ftrl.NewCrossValidate(x, y, reg.Dim(), gridConfig.kfold(), 0)

	cvGrid := ftrl.NewCVOptGrid(gridConfig.Model.Verbose + 1)
	for _, param := range gridConfig.Params {
		ftrl.HandleError(cvGrid.AddParamFloats(param.Name, param.Values))
	}
	best, _ := ftrl.GridOptimize(cv, cvGrid, reg, opt)
	log.Print("best case: ", best, ", cv error = ", best.Err)

	if gridConfig.FileNameModel != "" {
		ft := reg.Fit(opt, x, y)
		ftrl.HandleError(ftrl.SaveModel(ft, gridConfig.FileNameModel))
	}
}

type GraphConfig struct {
	ModelFileName string `json:"filename_model"`
	FigureType    string `json:"figure_type"`
	FileNameGraph string `json:"filename_graph"`
}

func graph(srcConfig string) {
	var graphConfig GraphConfig
	decodeConfig(srcConfig, &graphConfig)

	ft, err := ftrl.LoadModel(graphConfig.ModelFileName)
	ftrl.HandleError(err)
	ftrl.HandleError(ftrl.RenderTrain(ft, graphConfig.FileNameGraph, graphConfig.FigureType))
}

func main() {
	runMode := flag.String("mode", "train", "you can select either 'train', 'predict', 'evaluate', 'cv', 'grid' or 'graph' modes")
	config := flag.String("config", "ft_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	runner, ok := map[string]func(string){
		"train":    train,
		"predict":  predict,
		"evaluate": evaluate,
		"cv":       crossValidate,
		"grid":     grid,
		"graph":    graph,
	}[*runMode]
	if !ok {
		log.Fatal("unknown mode ", *runMode)
	}
	runner(*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		ftrl.HandleError(err)
		defer func() { ftrl.HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
