// Package config holds the layered run configuration: defaults, an
// optional YAML file, environment overrides and CLI flags.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config is the top-level configuration struct for codedrift.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	// Token authenticates github.com clones. It is injected explicitly
	// into the cache manager and never logged.
	Token string `mapstructure:"token"`

	Cache   CacheConfig   `mapstructure:"cache"`
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Run     RunConfig     `mapstructure:"run"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CacheConfig controls the repository mirror cache.
type CacheConfig struct {
	Dir       string `mapstructure:"dir"`
	Ephemeral bool   `mapstructure:"ephemeral"`
}

// InputConfig names the candidate-commit tables.
type InputConfig struct {
	Commits string `mapstructure:"commits"`
	Pulls   string `mapstructure:"pulls"`
}

// OutputConfig names the result tables.
type OutputConfig struct {
	Summary string `mapstructure:"summary"`
	Detail  string `mapstructure:"detail"`
}

// RunConfig holds the batch knobs.
type RunConfig struct {
	Suffix       string        `mapstructure:"suffix"`
	BatchSize    int           `mapstructure:"batch_size"`
	Delay        time.Duration `mapstructure:"delay"`
	SkipVendored bool          `mapstructure:"skip_vendored"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidBatchSize indicates the batch size is negative.
	ErrInvalidBatchSize = errors.New("run.batch_size must be non-negative")
	// ErrInvalidDelay indicates the inter-commit delay is negative.
	ErrInvalidDelay = errors.New("run.delay must be non-negative")
	// ErrInvalidSuffix indicates the file filter is not an extension suffix.
	ErrInvalidSuffix = errors.New("run.suffix must start with a dot")
	// ErrMissingSummaryPath indicates no summary table location is set.
	ErrMissingSummaryPath = errors.New("output.summary must be set")
	// ErrMissingCacheDir indicates a persistent cache without a directory.
	ErrMissingCacheDir = errors.New("cache.dir must be set unless cache.ephemeral")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Run.BatchSize < 0 {
		return ErrInvalidBatchSize
	}

	if c.Run.Delay < 0 {
		return ErrInvalidDelay
	}

	if !strings.HasPrefix(c.Run.Suffix, ".") {
		return ErrInvalidSuffix
	}

	if c.Output.Summary == "" {
		return ErrMissingSummaryPath
	}

	if c.Cache.Dir == "" && !c.Cache.Ephemeral {
		return ErrMissingCacheDir
	}

	return nil
}
