package ml

import (
	"context"
	"fmt"
	"time"

	"forest-predictor/internal/common"
	"forest-predictor/internal/dataset"
)

// Loader produces a ready ModelBundle. Where the model comes from (training on
// a dataset, or some future serialized artifact) is the loader's concern.
type Loader func(ctx context.Context) (*ModelBundle, error)

// TrainConfig controls one-shot training at startup.
type TrainConfig struct {
	Forest       ForestConfig
	FeatureCount int // required input width, 0 => accept the dataset's width
	Version      string
}

// DefaultTrainConfig trains a 50-tree forest on five features.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Forest:       DefaultForestConfig(),
		FeatureCount: common.FeatureCount,
		Version:      common.ModelVersion,
	}
}

// TrainingLoader returns a Loader that fits a new bundle from src.
func TrainingLoader(src dataset.Source, cfg TrainConfig) Loader {
	return func(ctx context.Context) (*ModelBundle, error) {
		return Initialize(ctx, src, cfg)
	}
}

// Initialize loads training data, fits the scaler, scales the data and fits the
// forest on it. It returns either a complete bundle or an error, never a bundle
// with only one half fitted. Panics raised while generating data or fitting are
// reported as Internal errors.
func Initialize(ctx context.Context, src dataset.Source, cfg TrainConfig) (bundle *ModelBundle, err error) {
	const op = "initialize"
	defer func() {
		if r := recover(); r != nil {
			bundle = nil
			err = internal(op, fmt.Errorf("panic during training: %v", r))
		}
	}()

	data, err := src.Load(ctx)
	if err != nil {
		return nil, internal(op, fmt.Errorf("load %s training data: %w", src.Name(), err))
	}
	if err := data.Validate(); err != nil {
		return nil, internal(op, err)
	}
	rows, cols := data.Dims()
	if cfg.FeatureCount > 0 && cols != cfg.FeatureCount {
		return nil, internal(op, fmt.Errorf("training data has %d features, expected %d", cols, cfg.FeatureCount))
	}

	scaler, err := FitScaler(data.X)
	if err != nil {
		return nil, internal(op, err)
	}
	scaled, err := scaler.TransformDense(data.X)
	if err != nil {
		return nil, internal(op, err)
	}

	forest, err := FitForest(ctx, scaled, data.Y, cfg.Forest)
	if err != nil {
		return nil, internal(op, err)
	}

	bundle, err = NewModelBundle(scaler, forest, ModelMetadata{
		Version:      cfg.Version,
		ModelType:    common.ModelType,
		FeatureNames: common.FeatureNames(cols),
		TrainedAt:    time.Now().UTC(),
		TrainingRows: rows,
		Source:       src.Name(),
	})
	if err != nil {
		return nil, internal(op, err)
	}
	return bundle, nil
}
