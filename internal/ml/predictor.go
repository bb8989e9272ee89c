// Package ml holds the prediction core: a fitted feature scaler, a random
// forest regressor, and the confidence heuristic derived from how much the
// forest's trees disagree.
//
// Every operation is a synchronous computation over in-memory data. The only
// shared state is the published ModelBundle, swapped atomically as a whole.
package ml

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc(kind string)
	LatencyObserve(float64)
	ConfidenceObserve(float64)
	BatchRecordsAdd(int)
	ModelLoadedSet(bool)
	TrainingDurationObserve(float64)
}

// PredictionResult is the outcome of a single prediction.
type PredictionResult struct {
	Prediction    float64   `json:"prediction"`
	Confidence    float64   `json:"confidence"`
	InputFeatures []float64 `json:"input_features"`
	Context       string    `json:"context"`
	ModelType     string    `json:"model_type"`
	FeatureCount  int       `json:"feature_count"`

	// Estimates are the per-tree values behind Confidence; never serialized.
	Estimates []float64 `json:"-"`
}

// BatchPrediction pairs one batch record with its point estimate.
type BatchPrediction struct {
	InputFeatures []float64 `json:"input_features"`
	Prediction    float64   `json:"prediction"`
}

// BatchResult is index-aligned with the submitted records.
type BatchResult struct {
	Predictions []BatchPrediction `json:"predictions"`
	RecordCount int               `json:"record_count"`
}

// ModelInfo reports static facts about the published model.
type ModelInfo struct {
	ModelType    string   `json:"model_type"`
	NEstimators  int      `json:"n_estimators"`
	FeatureCount int      `json:"feature_count"`
	FeatureNames []string `json:"feature_names"`
	Version      string   `json:"version"`
}

// DefaultContext is echoed when a request carries no context tag.
const DefaultContext = "none"

// Predictor serves predictions from the currently published ModelBundle.
// Until a bundle is published every predicting call fails with NotInitialized.
type Predictor struct {
	bundle  atomic.Pointer[ModelBundle]
	metrics MetricsInterface
	workers int
}

// NewPredictor creates a predictor with no model. metrics may be nil.
func NewPredictor(metrics MetricsInterface) *Predictor {
	return &Predictor{metrics: metrics, workers: runtime.GOMAXPROCS(0)}
}

// NewPredictorWithBundle creates a predictor that is ready immediately.
func NewPredictorWithBundle(b *ModelBundle, metrics MetricsInterface) *Predictor {
	p := NewPredictor(metrics)
	p.Publish(b)
	return p
}

// Publish makes b the bundle seen by all subsequent calls. Calls already in
// flight keep the bundle they started with.
func (p *Predictor) Publish(b *ModelBundle) {
	p.bundle.Store(b)
	if p.metrics != nil {
		p.metrics.ModelLoadedSet(b != nil)
	}
}

// Bundle returns the published bundle or nil.
func (p *Predictor) Bundle() *ModelBundle { return p.bundle.Load() }

// Ready reports whether a bundle has been published.
func (p *Predictor) Ready() bool { return p.bundle.Load() != nil }

// Init runs loader and publishes its bundle. On failure nothing is published
// and the predictor stays (or remains) in whatever state it had before.
func (p *Predictor) Init(ctx context.Context, loader Loader) error {
	start := time.Now()
	b, err := loader(ctx)
	if err != nil {
		log.Error().Err(err).Str("op", "initialize").Msg("model initialization failed")
		return err
	}
	p.Publish(b)

	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.TrainingDurationObserve(elapsed.Seconds())
	}
	md := b.Metadata()
	log.Info().
		Str("source", md.Source).
		Int("training_rows", md.TrainingRows).
		Int("n_estimators", b.Forest().NEstimators()).
		Dur("elapsed", elapsed).
		Msg("model trained successfully")
	return nil
}

// Predict scores one feature vector and attaches the tree-agreement confidence.
func (p *Predictor) Predict(features []float64, tag string) (*PredictionResult, error) {
	const op = "predict"
	start := time.Now()
	defer p.observeLatency(start)

	b := p.bundle.Load()
	if b == nil {
		return nil, p.fail(op, notInitialized(op))
	}
	if len(features) != b.FeatureCount() {
		err := invalidShape(op, b.FeatureCount(), len(features))
		log.Warn().Str("op", op).Int("feature_count", len(features)).Msg("rejected feature vector")
		return nil, p.fail(op, err)
	}

	point, estimates, err := b.estimate(features)
	if err == nil {
		err = checkFinite(point)
	}
	if err != nil {
		return nil, p.fail(op, internal(op, err))
	}
	confidence := Confidence(estimates, point)

	if tag == "" {
		tag = DefaultContext
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.ConfidenceObserve(confidence)
	}
	log.Info().Float64("prediction", point).Float64("confidence", confidence).Msg("prediction made")

	return &PredictionResult{
		Prediction:    point,
		Confidence:    confidence,
		InputFeatures: append([]float64(nil), features...),
		Context:       tag,
		ModelType:     b.metadata.ModelType,
		FeatureCount:  b.FeatureCount(),
		Estimates:     estimates,
	}, nil
}

// BatchPredict scores every record. All shapes are checked before any scoring,
// and the first record with the wrong width fails the whole batch. Confidence
// is not computed on this path.
func (p *Predictor) BatchPredict(records [][]float64) (*BatchResult, error) {
	const op = "batch_predict"
	start := time.Now()
	defer p.observeLatency(start)

	b := p.bundle.Load()
	if b == nil {
		return nil, p.fail(op, notInitialized(op))
	}
	for i, rec := range records {
		if len(rec) != b.FeatureCount() {
			log.Warn().Str("op", op).Int("record", i).Int("feature_count", len(rec)).Msg("rejected batch record")
			return nil, p.fail(op, invalidShape(op, b.FeatureCount(), len(rec)))
		}
	}

	out := make([]BatchPrediction, len(records))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, rec := range records {
		g.Go(func() error {
			v, err := b.point(rec)
			if err == nil {
				err = checkFinite(v)
			}
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = BatchPrediction{InputFeatures: append([]float64(nil), rec...), Prediction: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, p.fail(op, internal(op, err))
	}

	if p.metrics != nil {
		p.metrics.BatchRecordsAdd(len(out))
	}
	log.Info().Int("record_count", len(out)).Msg("batch prediction completed")

	return &BatchResult{Predictions: out, RecordCount: len(out)}, nil
}

// Info reports the published model's static facts.
func (p *Predictor) Info() (*ModelInfo, error) {
	const op = "info"
	b := p.bundle.Load()
	if b == nil {
		return nil, p.fail(op, notInitialized(op))
	}
	md := b.Metadata()
	return &ModelInfo{
		ModelType:    md.ModelType,
		NEstimators:  b.Forest().NEstimators(),
		FeatureCount: b.FeatureCount(),
		FeatureNames: md.FeatureNames,
		Version:      md.Version,
	}, nil
}

func (p *Predictor) fail(op string, err error) error {
	kind := KindOf(err)
	if p.metrics != nil {
		p.metrics.FailuresInc(kind.String())
	}
	if kind == NotInitialized || kind == Internal {
		log.Error().Err(err).Str("op", op).Str("kind", kind.String()).Msg("prediction failed")
	}
	return err
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("prediction is not finite: %v", v)
	}
	return nil
}

func (p *Predictor) observeLatency(start time.Time) {
	if p.metrics != nil {
		p.metrics.LatencyObserve(time.Since(start).Seconds())
	}
}
