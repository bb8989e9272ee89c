package ml

import (
	"context"
	"errors"
	"sync"
	"testing"

	"forest-predictor/internal/common"
	"forest-predictor/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictor_NotInitialized(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictor(metrics)

	assert.False(t, p.Ready())
	assert.Nil(t, p.Bundle())

	_, err := p.Predict([]float64{1, 2, 3, 4, 5}, "")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, NotInitialized, KindOf(err))

	_, err = p.BatchPredict([][]float64{{1, 2, 3, 4, 5}})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = p.Info()
	assert.ErrorIs(t, err, ErrNotInitialized)

	// shape problems are not reported before readiness
	_, err = p.Predict([]float64{1, 2, 3}, "")
	assert.Equal(t, NotInitialized, KindOf(err))

	assert.Equal(t, 4, metrics.failures["not_initialized"])
}

func TestPredictor_PredictScenario(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)

	res, err := p.Predict([]float64{1, 2, 3, 4, 5}, "dashboard-42")
	require.NoError(t, err)

	assert.Equal(t, 5, res.FeatureCount)
	assert.Equal(t, "RandomForestRegressor", res.ModelType)
	assert.Equal(t, "dashboard-42", res.Context)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, res.InputFeatures)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	require.Len(t, res.Estimates, 50)
	assert.InDelta(t, Confidence(res.Estimates, res.Prediction), res.Confidence, 1e-12)
}

func TestPredictor_ConfidenceStrictlyInsideForTypicalInput(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)

	// y = 2*10 + 3*10 - 1.5*(-5) = 57.5, well inside the training range.
	res, err := p.Predict([]float64{10, 10, -5, 1, 1}, "")
	require.NoError(t, err)
	assert.Greater(t, res.Prediction, 0.0)
	assert.Greater(t, res.Confidence, 0.0)
	assert.Less(t, res.Confidence, 1.0)
}

func TestPredictor_ConfidenceStrictlyInsideForAgreeingTrees(t *testing.T) {
	b, err := Initialize(context.Background(), constantishSource(), DefaultTrainConfig())
	require.NoError(t, err)
	p := NewPredictorWithBundle(b, nil)

	res, err := p.Predict([]float64{1, 2, 3, 4, 5}, "")
	require.NoError(t, err)
	assert.InDelta(t, 100, res.Prediction, 5)
	assert.Greater(t, res.Confidence, 0.0)
	assert.Less(t, res.Confidence, 1.0)
	assert.Greater(t, res.Confidence, 0.9)
}

func TestPredictor_DefaultContext(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)

	res, err := p.Predict([]float64{0, 0, 0, 0, 0}, "")
	require.NoError(t, err)
	assert.Equal(t, "none", res.Context)
}

func TestPredictor_Deterministic(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)
	in := []float64{-3.2, 8, 0.5, 12, -7}

	first, err := p.Predict(in, "x")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := p.Predict(in, "x")
		require.NoError(t, err)
		assert.Equal(t, first.Prediction, again.Prediction)
		assert.Equal(t, first.Confidence, again.Confidence)
	}

	// retraining from the same seed reproduces the same model
	other := NewPredictorWithBundle(trainedBundle(t), nil)
	res, err := other.Predict(in, "x")
	require.NoError(t, err)
	assert.Equal(t, first.Prediction, res.Prediction)
}

func TestPredictor_NonFinitePredictionIsInternal(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictorWithBundle(nonFiniteBundle(t), metrics)

	res, err := p.Predict([]float64{1, 2, 3, 4, 5}, "")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, Internal, KindOf(err))
	assert.Contains(t, err.Error(), "not finite")

	batch, err := p.BatchPredict([][]float64{{1, 2, 3, 4, 5}, {5, 4, 3, 2, 1}})
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, Internal, KindOf(err))
	assert.Contains(t, err.Error(), "not finite")

	assert.Equal(t, 2, metrics.failures["internal"])
	assert.Equal(t, 0, metrics.predictions)
}

func TestPredictor_InvalidShape(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictorWithBundle(trainedBundle(t), metrics)

	tests := []struct {
		name     string
		features []float64
		want     string
	}{
		{"too few", []float64{1, 2, 3}, "Expected 5 features, got 3"},
		{"too many", []float64{1, 2, 3, 4, 5, 6}, "Expected 5 features, got 6"},
		{"empty", []float64{}, "Expected 5 features, got 0"},
		{"nil", nil, "Expected 5 features, got 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Predict(tc.features, "")
			require.Error(t, err)
			assert.Equal(t, InvalidShape, KindOf(err))
			assert.Equal(t, tc.want, err.Error())

			_, err = p.BatchPredict([][]float64{{1, 2, 3, 4, 5}, tc.features})
			require.Error(t, err)
			assert.Equal(t, InvalidShape, KindOf(err))
			assert.Equal(t, tc.want, err.Error())
		})
	}

	assert.Equal(t, 0, metrics.predictions)
	assert.Equal(t, 0, metrics.batchRecords)
	assert.Equal(t, 8, metrics.failures["invalid_shape"])
}

func TestPredictor_BatchFirstOffenderWins(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)

	_, err := p.BatchPredict([][]float64{
		{1, 2, 3, 4, 5},
		{1, 2},
		{1, 2, 3, 4, 5, 6, 7},
	})
	require.Error(t, err)
	assert.Equal(t, "Expected 5 features, got 2", err.Error())
}

func TestPredictor_BatchPreservesOrder(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictorWithBundle(trainedBundle(t), metrics)

	records := make([][]float64, 64)
	for i := range records {
		f := float64(i)
		records[i] = []float64{f, -f, f / 2, 1, 2}
	}

	res, err := p.BatchPredict(records)
	require.NoError(t, err)
	assert.Equal(t, len(records), res.RecordCount)
	require.Len(t, res.Predictions, len(records))

	for i, rec := range records {
		assert.Equal(t, rec, res.Predictions[i].InputFeatures)

		single, err := p.Predict(rec, "")
		require.NoError(t, err)
		assert.Equal(t, single.Prediction, res.Predictions[i].Prediction)
	}
	assert.Equal(t, 64, metrics.batchRecords)
}

func TestPredictor_BatchEmpty(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)

	res, err := p.BatchPredict(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RecordCount)
	assert.Empty(t, res.Predictions)
}

func TestPredictor_Info(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)

	info, err := p.Info()
	require.NoError(t, err)
	assert.Equal(t, common.ModelType, info.ModelType)
	assert.Equal(t, 50, info.NEstimators)
	assert.Equal(t, 5, info.FeatureCount)
	assert.Equal(t, []string{"feature_0", "feature_1", "feature_2", "feature_3", "feature_4"}, info.FeatureNames)
	assert.Equal(t, "1.0.0", info.Version)
}

func TestPredictor_InputNotAliased(t *testing.T) {
	p := NewPredictorWithBundle(trainedBundle(t), nil)

	in := []float64{1, 2, 3, 4, 5}
	res, err := p.Predict(in, "")
	require.NoError(t, err)
	in[0] = 99
	assert.Equal(t, 1.0, res.InputFeatures[0])
}

func TestPredictor_Init(t *testing.T) {
	metrics := &MockMetrics{}
	p := NewPredictor(metrics)

	err := p.Init(context.Background(), TrainingLoader(dataset.NewSyntheticSource(100, 5, 42), DefaultTrainConfig()))
	require.NoError(t, err)
	assert.True(t, p.Ready())
	assert.True(t, metrics.modelLoaded)
	assert.Equal(t, 1, metrics.trainings)
	assert.Equal(t, "synthetic", p.Bundle().Metadata().Source)
	assert.Equal(t, 100, p.Bundle().Metadata().TrainingRows)
}

func TestPredictor_InitFailureLeavesNotReady(t *testing.T) {
	p := NewPredictor(&MockMetrics{})
	boom := errors.New("boom")

	err := p.Init(context.Background(), func(context.Context) (*ModelBundle, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, p.Ready())

	_, err = p.Predict([]float64{1, 2, 3, 4, 5}, "")
	assert.Equal(t, NotInitialized, KindOf(err))
}

func TestPredictor_ConcurrentReadsDuringPublish(t *testing.T) {
	a := trainedBundle(t)
	b, err := Initialize(context.Background(), constantishSource(), DefaultTrainConfig())
	require.NoError(t, err)

	p := NewPredictorWithBundle(a, &MockMetrics{})
	in := []float64{1, 2, 3, 4, 5}

	wantA, err := NewPredictorWithBundle(a, nil).Predict(in, "")
	require.NoError(t, err)
	wantB, err := NewPredictorWithBundle(b, nil).Predict(in, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res, err := p.Predict(in, "")
				if !assert.NoError(t, err) {
					return
				}
				// every result comes from exactly one of the two bundles
				matchA := res.Prediction == wantA.Prediction && res.Confidence == wantA.Confidence
				matchB := res.Prediction == wantB.Prediction && res.Confidence == wantB.Confidence
				assert.True(t, matchA || matchB)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			p.Publish(b)
		} else {
			p.Publish(a)
		}
	}
	wg.Wait()
}
