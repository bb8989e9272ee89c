// Command seeddata writes a synthetic labeled dataset into the bbolt store
// read by the "bolt" training source.
package main

import (
	"context"
	"flag"
	"os"

	"forest-predictor/internal/common"
	"forest-predictor/internal/dataset"
	"forest-predictor/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath = flag.String("data", "data", "Path to data directory")
		samples  = flag.Int("n", common.DefaultTrainingSamples, "Number of examples to generate")
		seed     = flag.Int64("seed", common.DefaultRandomSeed, "Random seed")
		features = flag.Int("features", common.FeatureCount, "Features per example")
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	data, err := dataset.NewSyntheticSource(*samples, *features, *seed).Load(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate dataset")
	}

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Str("data", *dataPath).Msg("failed to open store")
	}
	defer store.Close()

	if err := store.StoreExamples(data.Examples()); err != nil {
		log.Fatal().Err(err).Msg("failed to store examples")
	}

	total, err := store.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count examples")
	}
	log.Info().
		Str("data", *dataPath).
		Int("written", *samples).
		Int("total", total).
		Msg("seeded training store")
}
