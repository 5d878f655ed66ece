package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"bigsmall-bot/internal/ensemble"
)

// Settings is the resolved runtime configuration of the prediction service.
type Settings struct {
	// Ensemble core
	MinWeight          float64
	MaxWeight          float64
	EMAAlpha           float64
	WeightDecay        float64
	Lookback           int
	MinConfidence      float64
	GapThreshold       float64
	BiasUpper          float64
	BiasLower          float64
	AgreementThreshold float64
	OverlapThreshold   float64
	BiasWindow         int

	// Feed
	FeedURL      string
	FeedWsURL    string
	PollInterval time.Duration
	RESTTimeout  time.Duration

	// System
	HistorySize int
	DataPath    string
	APIPort     int
	MetricsPort int
}

// ConfigFile is the YAML layout accepted via CONFIG_FILE.
type ConfigFile struct {
	Ensemble struct {
		MinWeight          float64 `yaml:"minWeight"`
		MaxWeight          float64 `yaml:"maxWeight"`
		EMAAlpha           float64 `yaml:"emaAlpha"`
		WeightDecay        float64 `yaml:"weightDecay"`
		Lookback           int     `yaml:"lookback"`
		MinConfidence      float64 `yaml:"minConfidence"`
		GapThreshold       float64 `yaml:"gapThreshold"`
		BiasUpper          float64 `yaml:"biasUpper"`
		BiasLower          float64 `yaml:"biasLower"`
		AgreementThreshold float64 `yaml:"agreementThreshold"`
		OverlapThreshold   float64 `yaml:"overlapThreshold"`
		BiasWindow         int     `yaml:"biasWindow"`
	} `yaml:"ensemble"`

	Feed struct {
		URL          string `yaml:"url"`
		WsURL        string `yaml:"wsURL"`
		PollInterval string `yaml:"pollInterval"`
		RESTTimeout  string `yaml:"restTimeout"`
	} `yaml:"feed"`

	System struct {
		HistorySize int    `yaml:"historySize"`
		DataPath    string `yaml:"dataPath"`
		APIPort     int    `yaml:"apiPort"`
		MetricsPort int    `yaml:"metricsPort"`
	} `yaml:"system"`
}

// Load resolves settings from a YAML file named by CONFIG_FILE when set,
// falling back to environment variables, with defaults for everything the
// caller leaves out.
func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
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

	pollInterval, err := time.ParseDuration(config.Feed.PollInterval)
	if err != nil {
		pollInterval = 5 * time.Second
	}
	restTimeout, err := time.ParseDuration(config.Feed.RESTTimeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	core := ensemble.DefaultConfig()
	settings := Settings{
		MinWeight:          floatOr(config.Ensemble.MinWeight, core.MinWeight),
		MaxWeight:          floatOr(config.Ensemble.MaxWeight, core.MaxWeight),
		EMAAlpha:           floatOr(config.Ensemble.EMAAlpha, core.EMAAlpha),
		WeightDecay:        floatOr(config.Ensemble.WeightDecay, core.WeightDecay),
		Lookback:           intOr(config.Ensemble.Lookback, core.Lookback),
		MinConfidence:      floatOr(config.Ensemble.MinConfidence, core.MinConfidence),
		GapThreshold:       floatOr(config.Ensemble.GapThreshold, core.GapThreshold),
		BiasUpper:          floatOr(config.Ensemble.BiasUpper, core.BiasUpper),
		BiasLower:          floatOr(config.Ensemble.BiasLower, core.BiasLower),
		AgreementThreshold: floatOr(config.Ensemble.AgreementThreshold, core.AgreementThreshold),
		OverlapThreshold:   floatOr(config.Ensemble.OverlapThreshold, core.OverlapThreshold),
		BiasWindow:         intOr(config.Ensemble.BiasWindow, core.BiasWindow),
		FeedURL:            getEnvOrDefault("FEED_URL", config.Feed.URL),
		FeedWsURL:          getEnvOrDefault("FEED_WS_URL", config.Feed.WsURL),
		PollInterval:       pollInterval,
		RESTTimeout:        restTimeout,
		HistorySize:        intOr(config.System.HistorySize, 200),
		DataPath:           getEnvOrDefault("DATA_PATH", config.System.DataPath),
		APIPort:            intOr(config.System.APIPort, 8081),
		MetricsPort:        intOr(config.System.MetricsPort, 8080),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	core := ensemble.DefaultConfig()
	settings := Settings{
		MinWeight:          getFloatOrDefault("MIN_WEIGHT", core.MinWeight),
		MaxWeight:          getFloatOrDefault("MAX_WEIGHT", core.MaxWeight),
		EMAAlpha:           getFloatOrDefault("EMA_ALPHA", core.EMAAlpha),
		WeightDecay:        getFloatOrDefault("WEIGHT_DECAY", core.WeightDecay),
		Lookback:           getIntOrDefault("LOOKBACK", core.Lookback),
		MinConfidence:      getFloatOrDefault("MIN_CONFIDENCE", core.MinConfidence),
		GapThreshold:       getFloatOrDefault("GAP_THRESHOLD", core.GapThreshold),
		BiasUpper:          getFloatOrDefault("BIAS_UPPER", core.BiasUpper),
		BiasLower:          getFloatOrDefault("BIAS_LOWER", core.BiasLower),
		AgreementThreshold: getFloatOrDefault("AGREEMENT_THRESHOLD", core.AgreementThreshold),
		OverlapThreshold:   getFloatOrDefault("OVERLAP_THRESHOLD", core.OverlapThreshold),
		BiasWindow:         getIntOrDefault("BIAS_WINDOW", core.BiasWindow),
		FeedURL:            os.Getenv("FEED_URL"),   // optional, polling disabled when empty
		FeedWsURL:          os.Getenv("FEED_WS_URL"), // optional, streaming disabled when empty
		PollInterval:       getDurationOrDefault("POLL_INTERVAL", 5*time.Second),
		RESTTimeout:        getDurationOrDefault("REST_TIMEOUT", 5*time.Second),
		HistorySize:        getIntOrDefault("HISTORY_SIZE", 200),
		DataPath:           os.Getenv("DATA_PATH"), // optional, persistence disabled when empty
		APIPort:            getIntOrDefault("API_PORT", 8081),
		MetricsPort:        getIntOrDefault("METRICS_PORT", 8080),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// EnsembleConfig maps the resolved settings onto the core's config struct.
func (s *Settings) EnsembleConfig() ensemble.Config {
	return ensemble.Config{
		MinWeight:          s.MinWeight,
		MaxWeight:          s.MaxWeight,
		EMAAlpha:           s.EMAAlpha,
		WeightDecay:        s.WeightDecay,
		Lookback:           s.Lookback,
		MinConfidence:      s.MinConfidence,
		GapThreshold:       s.GapThreshold,
		BiasUpper:          s.BiasUpper,
		BiasLower:          s.BiasLower,
		AgreementThreshold: s.AgreementThreshold,
		OverlapThreshold:   s.OverlapThreshold,
		BiasWindow:         s.BiasWindow,
	}
}

func floatOr(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func intOr(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
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

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// validateSettings performs range validation of every configuration value.
func validateSettings(settings *Settings) error {
	if settings.MinWeight <= 0 || settings.MinWeight >= settings.MaxWeight {
		return fmt.Errorf("min weight must be positive and below max weight, got %f/%f", settings.MinWeight, settings.MaxWeight)
	}
	if settings.MaxWeight > 10 {
		return fmt.Errorf("max weight must be at most 10, got %f", settings.MaxWeight)
	}
	if settings.EMAAlpha <= 0 || settings.EMAAlpha >= 1 {
		return fmt.Errorf("EMA alpha must be in (0,1), got %f", settings.EMAAlpha)
	}
	if settings.WeightDecay <= 0 || settings.WeightDecay > 1 {
		return fmt.Errorf("weight decay must be in (0,1], got %f", settings.WeightDecay)
	}
	if settings.Lookback <= 0 || settings.Lookback > 10000 {
		return fmt.Errorf("lookback must be between 1 and 10000, got %d", settings.Lookback)
	}
	if settings.MinConfidence < 50 || settings.MinConfidence > 100 {
		return fmt.Errorf("min confidence must be between 50 and 100, got %f", settings.MinConfidence)
	}
	if settings.GapThreshold <= 0 || settings.GapThreshold > 100 {
		return fmt.Errorf("gap threshold must be between 0 and 100, got %f", settings.GapThreshold)
	}
	if settings.BiasLower <= 0 || settings.BiasUpper >= 1 || settings.BiasLower >= settings.BiasUpper {
		return fmt.Errorf("bias thresholds must satisfy 0 < lower < upper < 1, got %f/%f", settings.BiasLower, settings.BiasUpper)
	}
	if settings.AgreementThreshold <= 0.5 || settings.AgreementThreshold >= 1 {
		return fmt.Errorf("agreement threshold must be in (0.5,1), got %f", settings.AgreementThreshold)
	}
	if settings.OverlapThreshold <= 0 || settings.OverlapThreshold >= 1 {
		return fmt.Errorf("overlap threshold must be in (0,1), got %f", settings.OverlapThreshold)
	}
	if settings.BiasWindow <= 0 || settings.BiasWindow > settings.HistorySize {
		return fmt.Errorf("bias window must be between 1 and the history size, got %d", settings.BiasWindow)
	}
	if settings.HistorySize <= 0 || settings.HistorySize > 100000 {
		return fmt.Errorf("history size must be between 1 and 100000, got %d", settings.HistorySize)
	}
	if settings.PollInterval < time.Second || settings.PollInterval > time.Hour {
		return fmt.Errorf("poll interval must be between 1s and 1h, got %v", settings.PollInterval)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}
	if settings.APIPort < 1024 || settings.APIPort > 65535 {
		return fmt.Errorf("API port must be between 1024 and 65535, got %d", settings.APIPort)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.MetricsPort == settings.APIPort {
		return fmt.Errorf("metrics port and API port must differ, both are %d", settings.MetricsPort)
	}
	return nil
}
