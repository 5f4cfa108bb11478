package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Platform   PlatformConfig   `yaml:"platform" mapstructure:"platform"`
	Harvest    HarvestConfig    `yaml:"harvest" mapstructure:"harvest"`
	Rate       RateConfig       `yaml:"rate" mapstructure:"rate"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PlatformConfig identifies the remote portfolio platform.
type PlatformConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	TrackingSource string `yaml:"tracking_source" mapstructure:"tracking_source"`
}

// HarvestConfig bounds a single harvest run.
type HarvestConfig struct {
	Keyword            string `yaml:"keyword" mapstructure:"keyword"`
	MaxPages           int    `yaml:"max_pages" mapstructure:"max_pages"`
	MaxProfiles        int    `yaml:"max_profiles" mapstructure:"max_profiles"`
	Concurrency        int    `yaml:"concurrency" mapstructure:"concurrency"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// RateConfig sets the initial request rate; the limiter adapts around it.
type RateConfig struct {
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
}

// RetryConfig configures transient-failure retries.
type RetryConfig struct {
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	Jitter           float64 `yaml:"jitter" mapstructure:"jitter"`
}

// BreakerConfig configures the per-host circuit breaker.
type BreakerConfig struct {
	Threshold    int `yaml:"threshold" mapstructure:"threshold"`
	CooldownSecs int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// StoreConfig configures the run archive backend.
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	PoolSize int    `yaml:"pool_size" mapstructure:"pool_size"`
}

// ExportConfig configures serialization output.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Formats   string `yaml:"formats" mapstructure:"formats"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures metrics and alerting.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// ExtractConfig configures the profile extractor.
type ExtractConfig struct {
	SelectorsPath string `yaml:"selectors_path" mapstructure:"selectors_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("platform.base_url", "https://www.behance.net")
	v.SetDefault("platform.tracking_source", "typeahead_search_direction")
	v.SetDefault("harvest.keyword", "graphic designer")
	v.SetDefault("harvest.max_pages", 5)
	v.SetDefault("harvest.max_profiles", 50)
	v.SetDefault("harvest.concurrency", 16)
	v.SetDefault("harvest.request_timeout_secs", 20)
	v.SetDefault("rate.requests_per_sec", 1.0)
	v.SetDefault("rate.burst", 1)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 8000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter", 0.25)
	v.SetDefault("breaker.threshold", 5)
	v.SetDefault("breaker.cooldown_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "harvest.db")
	v.SetDefault("store.pool_size", 4)
	v.SetDefault("export.output_dir", "data")
	v.SetDefault("export.formats", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations that would misbehave at runtime. It runs
// before any network activity.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Platform.BaseURL) == "" {
		return eris.New("config: platform.base_url is empty")
	}
	if strings.TrimSpace(c.Harvest.Keyword) == "" {
		return eris.New("config: harvest.keyword is empty")
	}
	if c.Harvest.Concurrency < 1 {
		return eris.New("config: harvest.concurrency must be at least 1")
	}
	if c.Harvest.MaxProfiles < 0 {
		return eris.New("config: harvest.max_profiles must not be negative")
	}
	if c.Harvest.MaxPages < 1 {
		return eris.New("config: harvest.max_pages must be at least 1")
	}
	if c.Rate.RequestsPerSec <= 0 {
		return eris.New("config: rate.requests_per_sec must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return eris.New("config: retry.max_retries must not be negative")
	}
	return nil
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
