package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forest-predictor/internal/api"
	"forest-predictor/internal/cfg"
	"forest-predictor/internal/common"
	"forest-predictor/internal/dataset"
	"forest-predictor/internal/metrics"
	"forest-predictor/internal/ml"
	"forest-predictor/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	predictor := ml.NewPredictor(mw)

	src, closeSource, err := buildSource(c)
	if err != nil {
		log.Error().Err(err).Str("source", c.TrainingSource).Msg("training source unavailable, serving without a model")
	} else {
		initializeModel(ctx, predictor, src, c)
		closeSource()
	}

	server := api.NewServer(predictor, mw, api.Config{
		Addr:           c.Addr(),
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		AllowedOrigins: c.AllowedOrigins,
		MetricsHandler: promhttp.Handler(),
	})
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start prediction server")
	}

	waitForShutdown(ctx, cancel)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}

// setupLogging switches to a console writer at debug level in development.
func setupLogging(c cfg.Settings) {
	if c.IsDevelopment() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// buildSource returns the configured training source and a release func for
// any resources it holds open.
func buildSource(c cfg.Settings) (dataset.Source, func(), error) {
	noop := func() {}

	switch c.TrainingSource {
	case common.SourceSynthetic:
		return dataset.NewSyntheticSource(c.TrainingSamples, common.FeatureCount, c.RandomSeed), noop, nil
	case common.SourceBolt:
		store, err := storage.New(c.DataPath)
		if err != nil {
			return nil, noop, fmt.Errorf("open training store: %w", err)
		}
		release := func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close training store")
			}
		}
		return dataset.NewBoltSource(store), release, nil
	case common.SourceNpy:
		return dataset.NewNpySource(c.FeaturesFile, c.LabelsFile), noop, nil
	case common.SourceHTTP:
		return dataset.NewHTTPSource(c.TrainingURL, c.FetchTimeout), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown training source %q", c.TrainingSource)
	}
}

// initializeModel trains once at startup. A failure leaves the predictor
// unready; every predicting endpoint then answers NotInitialized.
func initializeModel(ctx context.Context, predictor *ml.Predictor, src dataset.Source, c cfg.Settings) {
	tc := ml.DefaultTrainConfig()
	tc.Forest.NEstimators = c.NEstimators
	tc.Forest.Seed = c.RandomSeed
	tc.Forest.Tree = ml.TreeConfig{
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		MinSamplesLeaf:  c.MinSamplesLeaf,
	}

	log.Info().
		Str("source", src.Name()).
		Int("n_estimators", c.NEstimators).
		Int64("seed", c.RandomSeed).
		Msg("training model")

	if err := predictor.Init(ctx, ml.TrainingLoader(src, tc)); err != nil {
		log.Error().Err(err).Msg("model unavailable, service running in degraded mode")
	}
}

// waitForShutdown blocks until a signal arrives or ctx is canceled.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}
