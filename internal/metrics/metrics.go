// Package metrics provides Prometheus metrics collection for the prediction service.
// It defines the counters, gauges and histograms exposed on /metrics and an
// adapter that lets the prediction core report without importing Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal   prometheus.Counter     // Single predictions served
	PredictionFailures *prometheus.CounterVec // Failed calls by error kind
	BatchRecordsTotal  prometheus.Counter     // Records scored through batch_predict
	PredictionLatency  prometheus.Histogram   // Core computation latency
	PredictionScores   prometheus.Histogram   // Distribution of confidence scores

	// Model metrics
	ModelLoaded      prometheus.Gauge     // 1 when a model bundle is published
	TrainingDuration prometheus.Histogram // Time spent fitting at startup

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec // Requests by route and status code
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of single predictions served",
		}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction calls by error kind",
		}, []string{"kind"}),
		BatchRecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_records_total",
			Help: "Total number of records scored by batch prediction",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction computation latency in seconds",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1},
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_loaded",
			Help: "Whether a model is loaded and ready (1) or not (0)",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "model_training_seconds",
			Help:    "Duration of model initialization in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}
