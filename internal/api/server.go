// Package api exposes the prediction core over HTTP.
//
// Routes:
//
//	GET  /health         liveness and model readiness
//	POST /predict        one feature vector, with confidence
//	POST /batch_predict  many feature vectors, point estimates only
//	GET  /info           static facts about the published model
//	GET  /metrics        Prometheus exposition
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"forest-predictor/internal/ml"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Predictor is the part of the prediction core the HTTP layer depends on.
type Predictor interface {
	Ready() bool
	Predict(features []float64, tag string) (*ml.PredictionResult, error)
	BatchPredict(records [][]float64) (*ml.BatchResult, error)
	Info() (*ml.ModelInfo, error)
}

// RequestObserver records one completed HTTP response.
type RequestObserver interface {
	RequestObserve(route string, code int)
}

// Config holds the listener and middleware settings of a Server.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Server serves the prediction API.
type Server struct {
	predictor Predictor
	observer  RequestObserver
	router    *mux.Router
	origins   []string
	server    *http.Server

	mu        sync.Mutex
	isRunning bool
	done      chan error
}

// NewServer wires routes and middleware. observer may be nil.
func NewServer(predictor Predictor, observer RequestObserver, cfg Config) *Server {
	s := &Server{
		predictor: predictor,
		observer:  observer,
		origins:   cfg.AllowedOrigins,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/batch_predict", s.handleBatchPredict).Methods(http.MethodPost)
	r.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods(http.MethodGet)
	}
	s.router = r

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withCORS(s.withRequestID(s.withAccessLog(s.router)))
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly; serve errors are reported by Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("api server is already running")
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.done = make(chan error, 1)
	go func() {
		log.Info().Str("address", ln.Addr().String()).Msg("Starting prediction server")
		err := s.server.Serve(ln)
		if err == http.ErrServerClosed {
			err = nil
		}
		if err != nil {
			log.Error().Err(err).Msg("Prediction server failed")
		}
		s.done <- err
	}()

	s.isRunning = true
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown prediction server")
		return err
	}
	s.isRunning = false

	if err := <-s.done; err != nil {
		return fmt.Errorf("prediction server stopped with error: %w", err)
	}
	log.Info().Msg("Prediction server stopped")
	return nil
}
