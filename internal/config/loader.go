package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".retrospect"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for retrospect settings.
const envPrefix = "RETROSPECT"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default model keys available without any configuration file.
const (
	DefaultEngine        = "sonnet"
	DefaultLogStem       = "log"
	DefaultZipDirectory  = "."
	DefaultOutputDir     = "output"
	DefaultMaxRetries    = 3
	defaultSonnetModel   = "claude-sonnet-4-5"
	defaultHaikuModel    = "claude-3-5-haiku-latest"
	defaultOpenAIModel   = "gpt-4o"
	defaultMaxTokensBig  = 8192
	defaultMaxTokensTiny = 4096
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
	viperCfg.SetDefault("zip_directory", DefaultZipDirectory)
	viperCfg.SetDefault("output.directory", DefaultOutputDir)
	viperCfg.SetDefault("binary_extensions", []string{})
	viperCfg.SetDefault("log_stem", DefaultLogStem)

	viperCfg.SetDefault("current_engine", DefaultEngine)
	viperCfg.SetDefault("models.sonnet.platform", "anthropic")
	viperCfg.SetDefault("models.sonnet.model", defaultSonnetModel)
	viperCfg.SetDefault("models.sonnet.max_tokens", defaultMaxTokensBig)
	viperCfg.SetDefault("models.haiku.platform", "anthropic")
	viperCfg.SetDefault("models.haiku.model", defaultHaikuModel)
	viperCfg.SetDefault("models.haiku.max_tokens", defaultMaxTokensTiny)
	viperCfg.SetDefault("models.gpt4o.platform", "openai")
	viperCfg.SetDefault("models.gpt4o.model", defaultOpenAIModel)
	viperCfg.SetDefault("models.gpt4o.max_tokens", defaultMaxTokensBig)

	viperCfg.SetDefault("retry.max_retries_per_model", DefaultMaxRetries)
	viperCfg.SetDefault("retry.fallback_models", []string{})
}
