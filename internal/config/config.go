// Package config loads the gbifmcp configuration snapshot: file, environment
// and defaults layered through viper. The snapshot is read once at startup
// and passed by value; nothing in the process mutates it afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	GBIF     GBIFConfig     `mapstructure:"gbif"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Response ResponseConfig `mapstructure:"response"`
	Download DownloadConfig `mapstructure:"download"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// GBIFConfig holds upstream API and resilience thresholds.
type GBIFConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MaxBytes int64         `mapstructure:"max_bytes"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ResponseConfig holds response size limits for truncation.
type ResponseConfig struct {
	MaxBytes   int  `mapstructure:"max_bytes"`
	WarnBytes  int  `mapstructure:"warn_bytes"`
	Truncation bool `mapstructure:"truncation"`
}

// DownloadConfig holds settings for occurrence download archives.
type DownloadConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds log sink settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from the given file (optional), the environment
// (GBIFMCP_ prefix) and defaults, in that order of precedence.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GBIFMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(home + "/gbifmcp")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the numeric thresholds a running client depends on.
func (c Config) Validate() error {
	if c.GBIF.BaseURL == "" {
		return fmt.Errorf("gbif.base_url must not be empty")
	}
	if c.GBIF.Timeout <= 0 {
		return fmt.Errorf("gbif.timeout must be positive")
	}
	if c.GBIF.RateLimitPerMin <= 0 {
		return fmt.Errorf("gbif.rate_limit_per_min must be positive")
	}
	if c.GBIF.MaxConcurrent <= 0 {
		return fmt.Errorf("gbif.max_concurrent must be positive")
	}
	if c.Cache.Enabled && (c.Cache.MaxBytes <= 0 || c.Cache.TTL <= 0) {
		return fmt.Errorf("cache.max_bytes and cache.ttl must be positive when cache.enabled")
	}
	if c.Response.MaxBytes <= 0 {
		return fmt.Errorf("response.max_bytes must be positive")
	}
	if c.Response.WarnBytes > c.Response.MaxBytes {
		return fmt.Errorf("response.warn_bytes must not exceed response.max_bytes")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gbif.base_url", "https://api.gbif.org/v1")
	v.SetDefault("gbif.timeout", 30*time.Second)
	v.SetDefault("gbif.retry_attempts", 3)
	v.SetDefault("gbif.retry_delay", time.Second)
	v.SetDefault("gbif.rate_limit_per_min", 60)
	v.SetDefault("gbif.max_concurrent", 5)
	// Registered empty so AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("gbif.username", "")
	v.SetDefault("gbif.password", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_bytes", int64(50<<20))
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("response.max_bytes", 250<<10)
	v.SetDefault("response.warn_bytes", 200<<10)
	v.SetDefault("response.truncation", true)

	v.SetDefault("download.dir", os.TempDir())

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9464")
}
