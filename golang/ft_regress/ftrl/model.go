package ftrl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/mleprovost/Compressed-Continuous-Computation/golang/ft_regress/ftrain"
	"github.com/pierrec/lz4/v4"
)

//ErrChecksumMismatch is returned when the stored parameters don't match their checksum.
var ErrChecksumMismatch = errors.New("model checksum mismatch")

//SavedModel is the file representation of a function train.
type SavedModel struct {
	Families []ftrain.FamilySpec `json:"families"`
	Ranks    []int               `json:"ranks"`
	Params   []float64           `json:"params"`
	Checksum uint64              `json:"checksum"`
}

//NewSavedModel describes ft.
func NewSavedModel(ft *ftrain.FunctionTrain) SavedModel {
	params := ft.Params(nil)
	return SavedModel{
		Families: ft.Opts().Specs(),
		Ranks:    append([]int(nil), ft.Ranks...),
		Params:   params,
		Checksum: Fingerprint(params),
	}
}

//Build checks the parameters and rebuilds the function train.
func (sm SavedModel) Build() (*ftrain.FunctionTrain, error) {
	if Fingerprint(sm.Params) != sm.Checksum {
		return nil, ErrChecksumMismatch
	}
	opts, err := ftrain.NewApproxOptsFromSpecs(sm.Families)
	if err != nil {
		return nil, err
	}
	if len(sm.Ranks) != opts.Dim()+1 {
		return nil, fmt.Errorf("%d ranks for %d dimensions", len(sm.Ranks), opts.Dim())
	}
	layout := ComputeLayout(sm.Ranks, opts)
	if layout.Total != len(sm.Params) {
		return nil, fmt.Errorf("model of ranks %v needs %d parameters, the file has %d", sm.Ranks, layout.Total, len(sm.Params))
	}
	ft := ftrain.Zeros(opts, sm.Ranks)
	ft.UpdateParams(sm.Params)
	return ft, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

//compressedWriter picks the codec from the file extension: .zst, .lz4 or none.
func compressedWriter(filename string, dst io.Writer) (io.WriteCloser, error) {
	switch filepath.Ext(filename) {
	case ".zst":
		return zstd.NewWriter(dst)
	case ".lz4":
		return lz4.NewWriter(dst), nil
	}
	return nopWriteCloser{dst}, nil
}

func compressedReader(filename string, src io.Reader) (io.ReadCloser, error) {
	switch filepath.Ext(filename) {
	case ".zst":
		decoder, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	case ".lz4":
		return io.NopCloser(lz4.NewReader(src)), nil
	}
	return io.NopCloser(src), nil
}

//SaveModel writes ft as json, compressed according to the extension of filename.
func SaveModel(ft *ftrain.FunctionTrain, filename string) (err error) {
	dest, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("can't open file %s to write: %w", filename, err)
	}
	defer func() {
		if closeErr := dest.Close(); err == nil {
			err = closeErr
		}
	}()

	writer, err := compressedWriter(filename, dest)
	if err != nil {
		return fmt.Errorf("can't compress %s: %w", filename, err)
	}
	modelByteRepr, err := json.MarshalIndent(NewSavedModel(ft), "", "  ")
	if err != nil {
		return err
	}
	if _, err = writer.Write(modelByteRepr); err != nil {
		_ = writer.Close()
		return fmt.Errorf("can't write %s: %w", filename, err)
	}
	return writer.Close()
}

//LoadModel reads a model written by SaveModel.
func LoadModel(filename string) (*ftrain.FunctionTrain, error) {
	source, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("can't open file %s: %w", filename, err)
	}
	defer source.Close()

	reader, err := compressedReader(filename, source)
	if err != nil {
		return nil, fmt.Errorf("can't decompress %s: %w", filename, err)
	}
	defer reader.Close()

	var sm SavedModel
	if err := json.NewDecoder(reader).Decode(&sm); err != nil {
		return nil, fmt.Errorf("can't decode %s: %w", filename, err)
	}
	ft, err := sm.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return ft, nil
}

//Save writes the current model of the regressor.
func (reg *FTRegress) Save(filename string) {
	HandleError(SaveModel(reg.ftp.FT(), filename))
}
