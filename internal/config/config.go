package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. VIBEPICK_GOOGLE_KEY.
const EnvPrefix = "VIBEPICK"

// Config holds the full application configuration.
type Config struct {
	Foursquare FoursquareConfig `yaml:"foursquare" mapstructure:"foursquare"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	OpenCage   OpenCageConfig   `yaml:"opencage" mapstructure:"opencage"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Device     DeviceConfig     `yaml:"device" mapstructure:"device"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Mood       MoodConfig       `yaml:"mood" mapstructure:"mood"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// FoursquareConfig configures the primary place provider. Proxy, when set,
// is a same-origin endpoint that injects the credential server-side.
type FoursquareConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	APIVersion    string `yaml:"api_version" mapstructure:"api_version"`
	Proxy         string `yaml:"proxy" mapstructure:"proxy"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// GoogleConfig configures the fallback place provider.
type GoogleConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// OpenCageConfig configures geocoding.
type OpenCageConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	CacheTTLMins  int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// SearchConfig holds place search defaults.
type SearchConfig struct {
	RadiusMeters int `yaml:"radius_meters" mapstructure:"radius_meters"`
}

// DeviceConfig bounds device position reads.
type DeviceConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAgeSecs  int `yaml:"max_age_secs" mapstructure:"max_age_secs"`
}

// ResilienceConfig configures per-provider retries and circuit breakers.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	RetryAttempts    int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// MoodConfig points at an optional taxonomy file replacing the built-in one.
type MoodConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	SessionTTLMins int      `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment. Missing
// provider keys are not an error; they disable the provider.
func Load() (*Config, error) {
	// .env values never override variables already set in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("foursquare.key", "")
	v.SetDefault("foursquare.base_url", "https://places-api.foursquare.com/places")
	v.SetDefault("foursquare.api_version", "2025-06-17")
	v.SetDefault("foursquare.proxy", "")
	v.SetDefault("foursquare.min_interval_ms", 2000)
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("google.min_interval_ms", 1000)
	v.SetDefault("opencage.key", "")
	v.SetDefault("opencage.base_url", "https://api.opencagedata.com/geocode/v1/json")
	v.SetDefault("opencage.min_interval_ms", 1000)
	v.SetDefault("opencage.cache_ttl_mins", 1440)
	v.SetDefault("search.radius_meters", 10000)
	v.SetDefault("device.timeout_secs", 10)
	v.SetDefault("device.max_age_secs", 300)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("resilience.retry_attempts", 2)
	v.SetDefault("resilience.retry_backoff_ms", 250)
	v.SetDefault("mood.file", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_ttl_mins", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
