package ml

import (
	"context"
	"math"
	"sync"
	"testing"

	"forest-predictor/internal/dataset"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu           sync.Mutex
	predictions  int
	failures     map[string]int
	latencySum   float64
	latencyCount int
	confidences  []float64
	batchRecords int
	modelLoaded  bool
	trainings    int
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) FailuresInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[kind]++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) ConfidenceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, v)
}

func (m *MockMetrics) BatchRecordsAdd(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchRecords += n
}

func (m *MockMetrics) ModelLoadedSet(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLoaded = v
}

func (m *MockMetrics) TrainingDurationObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainings++
}

// funcSource adapts a function to dataset.Source.
type funcSource struct {
	name string
	fn   func(ctx context.Context) (*dataset.Dataset, error)
}

func (s funcSource) Name() string { return s.name }

func (s funcSource) Load(ctx context.Context) (*dataset.Dataset, error) { return s.fn(ctx) }

// trainedBundle fits the default five-feature, 50-tree model on seed 42 data.
func trainedBundle(t *testing.T) *ModelBundle {
	t.Helper()
	b, err := Initialize(context.Background(), dataset.NewSyntheticSource(100, 5, 42), DefaultTrainConfig())
	require.NoError(t, err)
	return b
}

// constantishSource yields y = 100 + small noise, so trees agree closely.
func constantishSource() dataset.Source {
	return funcSource{name: "constantish", fn: func(ctx context.Context) (*dataset.Dataset, error) {
		d, err := dataset.NewSyntheticSource(100, 5, 9).Load(ctx)
		if err != nil {
			return nil, err
		}
		for i := range d.Y {
			row := d.Row(i)
			d.Y[i] = 100 + 0.05*row[3]
		}
		return &dataset.Dataset{X: mat.DenseCopyOf(d.X), Y: d.Y}, nil
	}}
}

// nonFiniteBundle is fitted on NaN labels, so every leaf and every
// prediction is NaN. Initialize would reject such data; this bypasses it.
func nonFiniteBundle(t *testing.T) *ModelBundle {
	t.Helper()
	d, err := dataset.NewSyntheticSource(40, 5, 5).Load(context.Background())
	require.NoError(t, err)
	for i := range d.Y {
		d.Y[i] = math.NaN()
	}

	scaler, err := FitScaler(d.X)
	require.NoError(t, err)
	scaled, err := scaler.TransformDense(d.X)
	require.NoError(t, err)

	cfg := DefaultForestConfig()
	cfg.NEstimators = 3
	forest, err := FitForest(context.Background(), scaled, d.Y, cfg)
	require.NoError(t, err)

	b, err := NewModelBundle(scaler, forest, ModelMetadata{})
	require.NoError(t, err)
	return b
}
