package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestWrapper(t *testing.T) (*Metrics, *MetricsWrapper) {
	t.Helper()
	m := NewWithRegistry(prometheus.NewRegistry())
	return m, NewWrapper(m)
}

func TestNewWrapper(t *testing.T) {
	m, wrapper := newTestWrapper(t)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != m {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_Counters(t *testing.T) {
	m, w := newTestWrapper(t)

	if v := testutil.ToFloat64(m.PredictionsTotal); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	w.PredictionsInc()
	w.PredictionsInc()
	if v := testutil.ToFloat64(m.PredictionsTotal); v != 2 {
		t.Errorf("Expected predictions 2, got %f", v)
	}

	w.BatchRecordsAdd(7)
	w.BatchRecordsAdd(3)
	if v := testutil.ToFloat64(m.BatchRecordsTotal); v != 10 {
		t.Errorf("Expected batch records 10, got %f", v)
	}
}

func TestMetricsWrapper_FailuresByKind(t *testing.T) {
	m, w := newTestWrapper(t)

	w.FailuresInc("invalid_shape")
	w.FailuresInc("invalid_shape")
	w.FailuresInc("not_initialized")

	if v := testutil.ToFloat64(m.PredictionFailures.WithLabelValues("invalid_shape")); v != 2 {
		t.Errorf("Expected 2 invalid_shape failures, got %f", v)
	}
	if v := testutil.ToFloat64(m.PredictionFailures.WithLabelValues("not_initialized")); v != 1 {
		t.Errorf("Expected 1 not_initialized failure, got %f", v)
	}
}

func TestMetricsWrapper_ModelLoaded(t *testing.T) {
	m, w := newTestWrapper(t)

	w.ModelLoadedSet(true)
	if v := testutil.ToFloat64(m.ModelLoaded); v != 1 {
		t.Errorf("Expected model_loaded 1, got %f", v)
	}

	w.ModelLoadedSet(false)
	if v := testutil.ToFloat64(m.ModelLoaded); v != 0 {
		t.Errorf("Expected model_loaded 0, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	m, w := newTestWrapper(t)

	w.LatencyObserve(0.001)
	w.ConfidenceObserve(0.8)
	w.ConfidenceObserve(0.2)
	w.TrainingDurationObserve(1.5)

	if n := testutil.CollectAndCount(m.PredictionLatency); n != 1 {
		t.Errorf("Expected 1 latency series, got %d", n)
	}
	if n := testutil.CollectAndCount(m.PredictionScores); n != 1 {
		t.Errorf("Expected 1 confidence series, got %d", n)
	}
	if n := testutil.CollectAndCount(m.TrainingDuration); n != 1 {
		t.Errorf("Expected 1 training series, got %d", n)
	}
}

func TestMetricsWrapper_RequestObserve(t *testing.T) {
	m, w := newTestWrapper(t)

	w.RequestObserve("/predict", 200)
	w.RequestObserve("/predict", 400)
	w.RequestObserve("/predict", 200)

	if v := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/predict", "200")); v != 2 {
		t.Errorf("Expected 2 OK requests, got %f", v)
	}
	if v := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/predict", "400")); v != 1 {
		t.Errorf("Expected 1 bad request, got %f", v)
	}
}

func TestNew_DefaultRegistry(t *testing.T) {
	m := New()
	if m.PredictionsTotal == nil || m.ModelLoaded == nil {
		t.Fatal("New returned incomplete metrics")
	}
}
