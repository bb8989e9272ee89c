// Package dataset supplies labeled training data to model initialization.
// A Source hides where the data comes from: synthetic generation, the local
// example store, npy files exported from a notebook, or a remote endpoint.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"

	"forest-predictor/internal/storage"

	"gonum.org/v1/gonum/mat"
)

// Dataset is a dense feature matrix with one label per row.
type Dataset struct {
	X *mat.Dense
	Y []float64
}

// Source loads a complete training dataset.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Dataset, error)
}

var ErrEmpty = errors.New("dataset is empty")

// Dims returns the number of rows and feature columns.
func (d *Dataset) Dims() (rows, cols int) {
	if d == nil || d.X == nil {
		return 0, 0
	}
	return d.X.Dims()
}

// Row returns a view of row i. The slice must not be modified.
func (d *Dataset) Row(i int) []float64 {
	return d.X.RawRowView(i)
}

// Validate checks that the dataset is non-empty, labels match rows and every
// value is finite.
func (d *Dataset) Validate() error {
	rows, cols := d.Dims()
	if rows == 0 || cols == 0 {
		return ErrEmpty
	}
	if len(d.Y) != rows {
		return fmt.Errorf("feature rows and labels length mismatch: %d != %d", rows, len(d.Y))
	}
	for i := 0; i < rows; i++ {
		for j, v := range d.Row(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("feature %d of row %d is not finite: %v", j, i, v)
			}
		}
		if math.IsNaN(d.Y[i]) || math.IsInf(d.Y[i], 0) {
			return fmt.Errorf("label of row %d is not finite: %v", i, d.Y[i])
		}
	}
	return nil
}

// FromExamples builds a dataset from stored examples. Every example must have
// the same number of features.
func FromExamples(examples []storage.Example) (*Dataset, error) {
	if len(examples) == 0 {
		return nil, ErrEmpty
	}
	cols := len(examples[0].Features)
	if cols == 0 {
		return nil, fmt.Errorf("example 0 has no features")
	}

	data := make([]float64, 0, len(examples)*cols)
	labels := make([]float64, len(examples))
	for i, ex := range examples {
		if len(ex.Features) != cols {
			return nil, fmt.Errorf("example %d has %d features, expected %d", i, len(ex.Features), cols)
		}
		data = append(data, ex.Features...)
		labels[i] = ex.Label
	}

	return &Dataset{X: mat.NewDense(len(examples), cols, data), Y: labels}, nil
}

// Examples converts the dataset back into storable examples.
func (d *Dataset) Examples() []storage.Example {
	rows, cols := d.Dims()
	out := make([]storage.Example, rows)
	for i := 0; i < rows; i++ {
		features := make([]float64, cols)
		copy(features, d.Row(i))
		out[i] = storage.Example{Features: features, Label: d.Y[i]}
	}
	return out
}
