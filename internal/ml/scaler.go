package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler is a fitted per-feature standardization (x - mean) / std.
// It is immutable after FitScaler returns.
type Scaler struct {
	mean []float64
	std  []float64
}

// FitScaler computes the population mean and standard deviation of every
// column of x. Columns with zero spread get a unit scale so they map to zero.
func FitScaler(x *mat.Dense) (*Scaler, error) {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("fit scaler: empty matrix")
	}

	s := &Scaler{
		mean: make([]float64, cols),
		std:  make([]float64, cols),
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			return nil, fmt.Errorf("fit scaler: feature %d has non-finite mean", j)
		}
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.mean[j] = mean
		s.std[j] = std
	}
	return s, nil
}

// Width is the number of features the scaler was fitted on.
func (s *Scaler) Width() int { return len(s.mean) }

// Mean returns a copy of the fitted per-feature means.
func (s *Scaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Std returns a copy of the fitted per-feature scales.
func (s *Scaler) Std() []float64 { return append([]float64(nil), s.std...) }

// Transform standardizes a single vector into a new slice.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.mean) {
		return nil, invalidShape("scale", len(s.mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out, nil
}

// TransformDense standardizes every row of x into a new matrix.
func (s *Scaler) TransformDense(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.mean) {
		return nil, invalidShape("scale", len(s.mean), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.mean[j]) / s.std[j]
	}, x)
	return out, nil
}
