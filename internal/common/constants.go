package common

import "strconv"

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvPort            = "PORT"
	EnvAppEnv          = "APP_ENV"
	EnvFlaskEnv        = "FLASK_ENV"
	EnvLogLevel        = "LOG_LEVEL"
	EnvTrainingSource  = "TRAINING_SOURCE"
	EnvDataPath        = "DATA_PATH"
	EnvFeaturesFile    = "FEATURES_FILE"
	EnvLabelsFile      = "LABELS_FILE"
	EnvTrainingURL     = "TRAINING_URL"
	EnvTrainingSamples = "TRAINING_SAMPLES"
	EnvNEstimators     = "N_ESTIMATORS"
	EnvRandomSeed      = "RANDOM_SEED"
	EnvMaxDepth        = "MAX_DEPTH"
	EnvMinSamplesSplit = "MIN_SAMPLES_SPLIT"
	EnvMinSamplesLeaf  = "MIN_SAMPLES_LEAF"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvFetchTimeout    = "FETCH_TIMEOUT"
	EnvAllowedOrigins  = "ALLOWED_ORIGINS"
)

// Runtime modes
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Training source kinds
const (
	SourceSynthetic = "synthetic"
	SourceBolt      = "bolt"
	SourceNpy       = "npy"
	SourceHTTP      = "http"
)

// Configuration defaults
const (
	DefaultPort            = 8080
	DefaultLogLevel        = "info"
	DefaultTrainingSource  = SourceSynthetic
	DefaultFeaturesFile    = "data/features.npy"
	DefaultLabelsFile      = "data/labels.npy"
	DefaultTrainingSamples = 100
	DefaultNEstimators     = 50
	DefaultRandomSeed      = 42
	DefaultMinSamplesSplit = 2
	DefaultMinSamplesLeaf  = 1
	DefaultAllowedOrigins  = "*"
)

// Model facts reported by /info and /predict
const (
	ModelType    = "RandomForestRegressor"
	ModelVersion = "1.0.0"
	FeatureCount = 5
)

// Validation constants
const (
	MinPort            = 1
	MaxPort            = 65535
	MaxNEstimators     = 1000
	MaxTrainingSamples = 1_000_000
	MaxDepthLimit      = 64
)

// FeatureNames returns the positional feature names feature_0..feature_{n-1}.
func FeatureNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "feature_" + strconv.Itoa(i)
	}
	return names
}
