package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"forest-predictor/internal/common"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port            int
	Env             string
	LogLevel        string
	TrainingSource  string
	DataPath        string
	FeaturesFile    string
	LabelsFile      string
	TrainingURL     string
	FetchTimeout    time.Duration
	TrainingSamples int
	NEstimators     int
	RandomSeed      int64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type ConfigFile struct {
	Server struct {
		Port            int      `yaml:"port"`
		Env             string   `yaml:"env"`
		LogLevel        string   `yaml:"logLevel"`
		ReadTimeout     string   `yaml:"readTimeout"`
		WriteTimeout    string   `yaml:"writeTimeout"`
		ShutdownTimeout string   `yaml:"shutdownTimeout"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Model struct {
		NEstimators     int    `yaml:"nEstimators"`
		RandomSeed      *int64 `yaml:"randomSeed"`
		MaxDepth        int    `yaml:"maxDepth"`
		MinSamplesSplit int    `yaml:"minSamplesSplit"`
		MinSamplesLeaf  int    `yaml:"minSamplesLeaf"`
	} `yaml:"model"`

	Training struct {
		Source       string `yaml:"source"`
		Samples      int    `yaml:"samples"`
		DataPath     string `yaml:"dataPath"`
		FeaturesFile string `yaml:"featuresFile"`
		LabelsFile   string `yaml:"labelsFile"`
		URL          string `yaml:"url"`
		FetchTimeout string `yaml:"fetchTimeout"`
	} `yaml:"training"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	seed := int64(common.DefaultRandomSeed)
	if config.Model.RandomSeed != nil {
		seed = *config.Model.RandomSeed
	}

	origins := config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{common.DefaultAllowedOrigins}
	}

	settings := Settings{
		Port:            getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		Env:             getModeFromEnvOrConfig(config.Server.Env),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orDefault(config.Server.LogLevel, common.DefaultLogLevel)),
		TrainingSource:  getEnvOrDefault(common.EnvTrainingSource, orDefault(config.Training.Source, common.DefaultTrainingSource)),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.Training.DataPath),
		FeaturesFile:    getEnvOrDefault(common.EnvFeaturesFile, orDefault(config.Training.FeaturesFile, common.DefaultFeaturesFile)),
		LabelsFile:      getEnvOrDefault(common.EnvLabelsFile, orDefault(config.Training.LabelsFile, common.DefaultLabelsFile)),
		TrainingURL:     getEnvOrDefault(common.EnvTrainingURL, config.Training.URL),
		FetchTimeout:    getDurationFromEnvOrConfig(common.EnvFetchTimeout, config.Training.FetchTimeout, 10*time.Second),
		TrainingSamples: getIntFromEnvOrConfig(common.EnvTrainingSamples, config.Training.Samples, common.DefaultTrainingSamples),
		NEstimators:     getIntFromEnvOrConfig(common.EnvNEstimators, config.Model.NEstimators, common.DefaultNEstimators),
		RandomSeed:      getInt64OrDefault(common.EnvRandomSeed, seed),
		MaxDepth:        getIntFromEnvOrConfig(common.EnvMaxDepth, config.Model.MaxDepth, 0),
		MinSamplesSplit: getIntFromEnvOrConfig(common.EnvMinSamplesSplit, config.Model.MinSamplesSplit, common.DefaultMinSamplesSplit),
		MinSamplesLeaf:  getIntFromEnvOrConfig(common.EnvMinSamplesLeaf, config.Model.MinSamplesLeaf, common.DefaultMinSamplesLeaf),
		ReadTimeout:     getDurationFromEnvOrConfig(common.EnvReadTimeout, config.Server.ReadTimeout, 10*time.Second),
		WriteTimeout:    getDurationFromEnvOrConfig(common.EnvWriteTimeout, config.Server.WriteTimeout, 10*time.Second),
		ShutdownTimeout: getDurationFromEnvOrConfig(common.EnvShutdownTimeout, config.Server.ShutdownTimeout, 10*time.Second),
		AllowedOrigins:  splitOrDefault(os.Getenv(common.EnvAllowedOrigins), origins),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:            getIntOrDefault(common.EnvPort, common.DefaultPort),
		Env:             getModeFromEnvOrConfig(""),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		TrainingSource:  getEnvOrDefault(common.EnvTrainingSource, common.DefaultTrainingSource),
		DataPath:        os.Getenv(common.EnvDataPath),
		FeaturesFile:    getEnvOrDefault(common.EnvFeaturesFile, common.DefaultFeaturesFile),
		LabelsFile:      getEnvOrDefault(common.EnvLabelsFile, common.DefaultLabelsFile),
		TrainingURL:     os.Getenv(common.EnvTrainingURL),
		FetchTimeout:    getDurationOrDefault(common.EnvFetchTimeout, 10*time.Second),
		TrainingSamples: getIntOrDefault(common.EnvTrainingSamples, common.DefaultTrainingSamples),
		NEstimators:     getIntOrDefault(common.EnvNEstimators, common.DefaultNEstimators),
		RandomSeed:      getInt64OrDefault(common.EnvRandomSeed, common.DefaultRandomSeed),
		MaxDepth:        getIntOrDefault(common.EnvMaxDepth, 0),
		MinSamplesSplit: getIntOrDefault(common.EnvMinSamplesSplit, common.DefaultMinSamplesSplit),
		MinSamplesLeaf:  getIntOrDefault(common.EnvMinSamplesLeaf, common.DefaultMinSamplesLeaf),
		ReadTimeout:     getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:    getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, 10*time.Second),
		AllowedOrigins:  splitOrDefault(os.Getenv(common.EnvAllowedOrigins), []string{common.DefaultAllowedOrigins}),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (s *Settings) IsDevelopment() bool {
	return s.Env == common.ModeDevelopment
}

// Addr is the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

// getModeFromEnvOrConfig prefers APP_ENV, then FLASK_ENV, then the file value.
// FLASK_ENV only selects development; any other value means production.
func getModeFromEnvOrConfig(configValue string) string {
	if v := os.Getenv(common.EnvAppEnv); v != "" {
		return strings.ToLower(v)
	}
	if v := os.Getenv(common.EnvFlaskEnv); v != "" {
		if strings.EqualFold(v, common.ModeDevelopment) {
			return common.ModeDevelopment
		}
		return common.ModeProduction
	}
	if configValue != "" {
		return strings.ToLower(configValue)
	}
	return common.ModeProduction
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if configValue != "" {
		if d, err := time.ParseDuration(configValue); err == nil {
			return d
		}
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	if settings.Env != common.ModeDevelopment && settings.Env != common.ModeProduction {
		return fmt.Errorf("env must be %q or %q, got %q", common.ModeDevelopment, common.ModeProduction, settings.Env)
	}
	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	// Validate training source
	switch settings.TrainingSource {
	case common.SourceSynthetic:
		if settings.TrainingSamples <= 0 || settings.TrainingSamples > common.MaxTrainingSamples {
			return fmt.Errorf("training samples must be between 1 and %d, got %d", common.MaxTrainingSamples, settings.TrainingSamples)
		}
	case common.SourceBolt:
		if settings.DataPath == "" {
			return fmt.Errorf("data path is required for the %s training source", common.SourceBolt)
		}
	case common.SourceNpy:
		if settings.FeaturesFile == "" || settings.LabelsFile == "" {
			return fmt.Errorf("features and labels files are required for the %s training source", common.SourceNpy)
		}
	case common.SourceHTTP:
		if settings.TrainingURL == "" {
			return fmt.Errorf("training URL is required for the %s training source", common.SourceHTTP)
		}
	default:
		return fmt.Errorf("unknown training source %q", settings.TrainingSource)
	}

	// Validate model hyperparameters
	if settings.NEstimators <= 0 || settings.NEstimators > common.MaxNEstimators {
		return fmt.Errorf("n_estimators must be between 1 and %d, got %d", common.MaxNEstimators, settings.NEstimators)
	}
	if settings.MaxDepth < 0 || settings.MaxDepth > common.MaxDepthLimit {
		return fmt.Errorf("max depth must be between 0 (unlimited) and %d, got %d", common.MaxDepthLimit, settings.MaxDepth)
	}
	if settings.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be at least 2, got %d", settings.MinSamplesSplit)
	}
	if settings.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf must be at least 1, got %d", settings.MinSamplesLeaf)
	}

	// Validate time durations
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}
	if settings.ShutdownTimeout < time.Second || settings.ShutdownTimeout > time.Minute {
		return fmt.Errorf("shutdown timeout must be between 1s and 1m, got %v", settings.ShutdownTimeout)
	}
	if settings.FetchTimeout < time.Second || settings.FetchTimeout > 5*time.Minute {
		return fmt.Errorf("fetch timeout must be between 1s and 5m, got %v", settings.FetchTimeout)
	}

	if len(settings.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	return nil
}
