// Package config loads settings from defaults, .lineage.yaml and LINEAGE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// EnvPrefix is prepended to every environment override, e.g. LINEAGE_GIT_TIMEOUT.
const EnvPrefix = "LINEAGE"

// Config holds all configuration settings
type Config struct {
	Git     GitConfig     `mapstructure:"git" yaml:"git"`
	Resolve ResolveConfig `mapstructure:"resolve" yaml:"resolve"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

type GitConfig struct {
	Binary  string        `mapstructure:"binary" yaml:"binary"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"` // per invocation
}

type ResolveConfig struct {
	Parallelism int     `mapstructure:"parallelism" yaml:"parallelism"`
	Rate        float64 `mapstructure:"rate" yaml:"rate"` // git invocations per second, 0 = unlimited
	Burst       int     `mapstructure:"burst" yaml:"burst"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Git: GitConfig{
			Binary:  "git",
			Timeout: 15 * time.Second,
		},
		Resolve: ResolveConfig{
			Parallelism: 4,
			Burst:       4,
		},
		Cache: CacheConfig{Enabled: true},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads configuration. An explicit path must exist; otherwise
// .lineage.yaml in root is used when present.
func Load(root, path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("git.binary", cfg.Git.Binary)
	v.SetDefault("git.timeout", cfg.Git.Timeout)
	v.SetDefault("resolve.parallelism", cfg.Resolve.Parallelism)
	v.SetDefault("resolve.rate", cfg.Resolve.Rate)
	v.SetDefault("resolve.burst", cfg.Resolve.Burst)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case path != "":
		v.SetConfigFile(path)
	case root != "":
		v.SetConfigName(".lineage")
		v.AddConfigPath(root)
	}

	if path != "" || root != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Git.Binary == "" {
		return fmt.Errorf("git.binary must not be empty")
	}
	if c.Git.Timeout <= 0 {
		return fmt.Errorf("git.timeout must be positive, got %s", c.Git.Timeout)
	}
	if c.Resolve.Parallelism <= 0 {
		return fmt.Errorf("resolve.parallelism must be positive, got %d", c.Resolve.Parallelism)
	}
	if c.Resolve.Rate < 0 {
		return fmt.Errorf("resolve.rate must not be negative, got %g", c.Resolve.Rate)
	}
	if c.Resolve.Rate > 0 && c.Resolve.Burst <= 0 {
		return fmt.Errorf("resolve.burst must be positive when resolve.rate is set")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Limiter returns the shared git invocation limiter, or nil when unlimited.
func (c *Config) Limiter() *rate.Limiter {
	if c.Resolve.Rate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.Resolve.Rate), c.Resolve.Burst)
}
