package dataset

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// SyntheticSource generates a linear regression problem with Gaussian noise:
// y = 2*x0 + 3*x1 - 1.5*x2 + 2*N(0,1), with features drawn from 10*N(0,1).
// It stands in for a real data source during development.
type SyntheticSource struct {
	Samples  int
	Features int
	Seed     int64
}

// NewSyntheticSource returns a generator for samples rows of features columns.
func NewSyntheticSource(samples, features int, seed int64) *SyntheticSource {
	return &SyntheticSource{Samples: samples, Features: features, Seed: seed}
}

func (s *SyntheticSource) Name() string { return "synthetic" }

func (s *SyntheticSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Samples <= 0 || s.Features < 3 {
		return nil, ErrEmpty
	}

	rng := rand.New(rand.NewSource(s.Seed))

	x := mat.NewDense(s.Samples, s.Features, nil)
	for i := 0; i < s.Samples; i++ {
		for j := 0; j < s.Features; j++ {
			x.Set(i, j, rng.NormFloat64()*10)
		}
	}

	y := make([]float64, s.Samples)
	for i := range y {
		y[i] = 2*x.At(i, 0) + 3*x.At(i, 1) - 1.5*x.At(i, 2) + rng.NormFloat64()*2
	}

	return &Dataset{X: x, Y: y}, nil
}
