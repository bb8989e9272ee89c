package ml

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ForestConfig holds the hyperparameters of a random forest regressor.
type ForestConfig struct {
	NEstimators int
	Seed        int64
	Tree        TreeConfig
	Bootstrap   bool
	Workers     int // 0 => GOMAXPROCS
}

// DefaultForestConfig mirrors a 50-tree forest with fixed seed 42.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NEstimators: 50,
		Seed:        42,
		Tree:        TreeConfig{MinSamplesSplit: 2, MinSamplesLeaf: 1},
		Bootstrap:   true,
	}
}

// Forest is an ensemble of independently fitted regression trees whose mean
// output is the prediction. It is immutable after FitForest returns.
type Forest struct {
	trees     []*RegressionTree
	nFeatures int
	cfg       ForestConfig
}

// growTree fits one tree; swapped out in tests.
var growTree = fitTree

// FitForest fits cfg.NEstimators trees concurrently. Tree i draws its bootstrap
// sample from a source seeded with cfg.Seed+i, so the result does not depend on
// scheduling.
func FitForest(ctx context.Context, x *mat.Dense, y []float64, cfg ForestConfig) (*Forest, error) {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("fit forest: empty matrix")
	}
	if len(y) != rows {
		return nil, fmt.Errorf("fit forest: %d rows but %d labels", rows, len(y))
	}
	if cfg.NEstimators <= 0 {
		return nil, fmt.Errorf("fit forest: n_estimators must be positive, got %d", cfg.NEstimators)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	f := &Forest{
		trees:     make([]*RegressionTree, cfg.NEstimators),
		nFeatures: cols,
		cfg:       cfg,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < cfg.NEstimators; i++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("tree %d: panic: %v", i, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				return err
			}
			idx := sampleRows(rows, cfg.Bootstrap, rand.New(rand.NewSource(cfg.Seed+int64(i))))
			f.trees[i] = growTree(x, y, idx, cfg.Tree)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	return f, nil
}

func sampleRows(n int, bootstrap bool, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		if bootstrap {
			idx[i] = rng.Intn(n)
		} else {
			idx[i] = i
		}
	}
	return idx
}

// NEstimators is the number of trees in the forest.
func (f *Forest) NEstimators() int { return len(f.trees) }

// NFeatures is the input width the forest was fitted on.
func (f *Forest) NFeatures() int { return f.nFeatures }

// Config returns the hyperparameters the forest was fitted with.
func (f *Forest) Config() ForestConfig { return f.cfg }

// Estimates returns the prediction of every tree for one scaled vector, in tree order.
func (f *Forest) Estimates(x []float64) []float64 {
	out := make([]float64, len(f.trees))
	for i, t := range f.trees {
		out[i] = t.Predict(x)
	}
	return out
}

// Predict is the mean of the per-tree estimates.
func (f *Forest) Predict(x []float64) float64 {
	return stat.Mean(f.Estimates(x), nil)
}
