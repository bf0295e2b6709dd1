package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".codedrift"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for codedrift settings.
const envPrefix = "CODEDRIFT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default values applied before file and environment layers.
const (
	DefaultCacheDir     = "repos"
	DefaultCommitsTable = "pr_commits.parquet"
	DefaultPullsTable   = "all_pull_request.parquet"
	DefaultSummaryTable = "commit_metrics.csv"
	DefaultDetailTable  = "commit_metrics_detail.parquet"
	DefaultSuffix       = ".py"
	DefaultBatchSize    = 0
	DefaultDelay        = 0 * time.Second
	DefaultSkipVendored = false
	DefaultEphemeral    = false
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("token", "")

	viperCfg.SetDefault("cache.dir", DefaultCacheDir)
	viperCfg.SetDefault("cache.ephemeral", DefaultEphemeral)

	viperCfg.SetDefault("input.commits", DefaultCommitsTable)
	viperCfg.SetDefault("input.pulls", DefaultPullsTable)

	viperCfg.SetDefault("output.summary", DefaultSummaryTable)
	viperCfg.SetDefault("output.detail", DefaultDetailTable)

	viperCfg.SetDefault("run.suffix", DefaultSuffix)
	viperCfg.SetDefault("run.batch_size", DefaultBatchSize)
	viperCfg.SetDefault("run.delay", DefaultDelay)
	viperCfg.SetDefault("run.skip_vendored", DefaultSkipVendored)

	viperCfg.SetDefault("metrics.addr", "")
}
