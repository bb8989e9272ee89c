package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFitScaler(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	s, err := FitScaler(x)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Width())
	assert.InDelta(t, 2.5, s.Mean()[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Std()[0], 1e-12, "population std expected")
	assert.Equal(t, 10.0, s.Mean()[1])
	assert.Equal(t, 1.0, s.Std()[1], "zero spread must not divide by zero")

	out, err := s.Transform([]float64{2.5, 10})
	require.NoError(t, err)
	assert.InDelta(t, 0, out[0], 1e-12)
	assert.InDelta(t, 0, out[1], 1e-12)
}

func TestFitScaler_Empty(t *testing.T) {
	_, err := FitScaler(&mat.Dense{})
	assert.Error(t, err)
}

func TestScaler_TransformShape(t *testing.T) {
	s, err := FitScaler(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, err)

	_, err = s.Transform([]float64{1, 2})
	require.Error(t, err)
	assert.Equal(t, InvalidShape, KindOf(err))
	assert.Contains(t, err.Error(), "Expected 3 features, got 2")

	_, err = s.TransformDense(mat.NewDense(1, 2, []float64{1, 2}))
	assert.Equal(t, InvalidShape, KindOf(err))
}

func TestScaler_TransformDenseMatchesTransform(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, -4, 7, 0, -2, 9})
	s, err := FitScaler(x)
	require.NoError(t, err)

	dense, err := s.TransformDense(x)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		row, err := s.Transform(x.RawRowView(i))
		require.NoError(t, err)
		assert.InDeltaSlice(t, row, dense.RawRowView(i), 1e-12)
	}

	// standardized columns have zero mean
	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, dense)
		assert.InDelta(t, 0, col[0]+col[1]+col[2], 1e-9)
	}
}

func TestScaler_TransformDoesNotMutateInput(t *testing.T) {
	s, err := FitScaler(mat.NewDense(2, 2, []float64{0, 0, 2, 2}))
	require.NoError(t, err)

	in := []float64{5, 5}
	_, err = s.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, in)
}
