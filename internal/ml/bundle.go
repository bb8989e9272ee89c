package ml

import (
	"fmt"
	"time"

	"forest-predictor/internal/common"

	"gonum.org/v1/gonum/stat"
)

// ModelMetadata describes a fitted bundle.
type ModelMetadata struct {
	Version      string    `json:"version"`
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names"`
	TrainedAt    time.Time `json:"trained_at"`
	TrainingRows int       `json:"training_rows"`
	Source       string    `json:"source"`
}

// ModelBundle pairs a fitted scaler with the forest trained on its output.
// Both halves are created together and never mutated afterwards, so a bundle
// can be shared by any number of concurrent readers.
type ModelBundle struct {
	scaler   *Scaler
	forest   *Forest
	metadata ModelMetadata
}

// NewModelBundle checks that scaler and forest agree on the feature width.
func NewModelBundle(scaler *Scaler, forest *Forest, md ModelMetadata) (*ModelBundle, error) {
	if scaler == nil || forest == nil {
		return nil, fmt.Errorf("bundle requires both a scaler and a forest")
	}
	if scaler.Width() != forest.NFeatures() {
		return nil, fmt.Errorf("scaler width %d does not match forest width %d", scaler.Width(), forest.NFeatures())
	}
	if md.Version == "" {
		md.Version = common.ModelVersion
	}
	if md.ModelType == "" {
		md.ModelType = common.ModelType
	}
	if len(md.FeatureNames) != scaler.Width() {
		md.FeatureNames = common.FeatureNames(scaler.Width())
	}
	return &ModelBundle{scaler: scaler, forest: forest, metadata: md}, nil
}

// FeatureCount is the fixed input width the bundle accepts.
func (b *ModelBundle) FeatureCount() int { return b.scaler.Width() }

// Metadata returns a copy of the bundle metadata.
func (b *ModelBundle) Metadata() ModelMetadata {
	md := b.metadata
	md.FeatureNames = append([]string(nil), b.metadata.FeatureNames...)
	return md
}

// Forest exposes the fitted ensemble.
func (b *ModelBundle) Forest() *Forest { return b.forest }

// Scaler exposes the fitted scaler.
func (b *ModelBundle) Scaler() *Scaler { return b.scaler }

// estimate scales x and returns the ensemble mean plus every per-tree value.
func (b *ModelBundle) estimate(x []float64) (float64, []float64, error) {
	scaled, err := b.scaler.Transform(x)
	if err != nil {
		return 0, nil, err
	}
	estimates := b.forest.Estimates(scaled)
	return stat.Mean(estimates, nil), estimates, nil
}

// point scales x and returns only the ensemble mean.
func (b *ModelBundle) point(x []float64) (float64, error) {
	scaled, err := b.scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	return b.forest.Predict(scaled), nil
}
