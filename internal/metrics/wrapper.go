package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces used by the
// prediction core and the HTTP layer.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.PredictionsTotal.Inc()
}

func (w *MetricsWrapper) FailuresInc(kind string) {
	w.m.PredictionFailures.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) LatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *MetricsWrapper) ConfidenceObserve(v float64) {
	w.m.PredictionScores.Observe(v)
}

func (w *MetricsWrapper) BatchRecordsAdd(n int) {
	w.m.BatchRecordsTotal.Add(float64(n))
}

func (w *MetricsWrapper) ModelLoadedSet(loaded bool) {
	if loaded {
		w.m.ModelLoaded.Set(1)
		return
	}
	w.m.ModelLoaded.Set(0)
}

func (w *MetricsWrapper) TrainingDurationObserve(v float64) {
	w.m.TrainingDuration.Observe(v)
}

// RequestObserve counts one HTTP response for route.
func (w *MetricsWrapper) RequestObserve(route string, code int) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
