// Package config loads retrospect configuration from file, environment
// variables, and defaults.
package config

import (
	"fmt"

	"github.com/Sumatoshi-tech/retrospect/internal/llm"
)

// Config is the top-level configuration struct for retrospect.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	ZipDirectory     string                     `mapstructure:"zip_directory"`
	Output           OutputConfig               `mapstructure:"output"`
	BinaryExtensions []string                   `mapstructure:"binary_extensions"`
	Models           map[string]llm.ModelConfig `mapstructure:"models"`
	CurrentEngine    string                     `mapstructure:"current_engine"`
	Retry            RetryConfig                `mapstructure:"retry"`
	LogStem          string                     `mapstructure:"log_stem"`
}

// OutputConfig holds output location settings.
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
}

// RetryConfig holds retry and fallback settings. Fallback model names
// refer to keys of the models map, not platform identifiers.
type RetryConfig struct {
	MaxRetriesPerModel int                        `mapstructure:"max_retries_per_model"`
	FallbackModels     []string                   `mapstructure:"fallback_models"`
	Tasks              map[string]TaskRetryConfig `mapstructure:"tasks"`
}

// TaskRetryConfig overrides the fallback chain for one analysis task.
type TaskRetryConfig struct {
	FallbackModels []string `mapstructure:"fallback_models"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.ZipDirectory == "" {
		return fmt.Errorf("zip_directory must not be empty")
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory must not be empty")
	}

	for name, m := range c.Models {
		if m.Platform != llm.PlatformAnthropic && m.Platform != llm.PlatformOpenAI {
			return fmt.Errorf("model %q: unknown platform %q", name, m.Platform)
		}
		if m.Model == "" {
			return fmt.Errorf("model %q: model identifier must not be empty", name)
		}
		if m.MaxTokens <= 0 {
			return fmt.Errorf("model %q: max_tokens must be positive", name)
		}
	}

	if _, ok := c.Models[c.CurrentEngine]; !ok {
		return fmt.Errorf("current_engine %q is not defined in models", c.CurrentEngine)
	}

	for _, name := range c.Retry.FallbackModels {
		if _, ok := c.Models[name]; !ok {
			return fmt.Errorf("retry.fallback_models references unknown model %q", name)
		}
	}
	for task, tc := range c.Retry.Tasks {
		for _, name := range tc.FallbackModels {
			if _, ok := c.Models[name]; !ok {
				return fmt.Errorf("retry.tasks.%s.fallback_models references unknown model %q", task, name)
			}
		}
	}

	if c.Retry.MaxRetriesPerModel <= 0 {
		return fmt.Errorf("retry.max_retries_per_model must be positive")
	}

	return nil
}

// CurrentModel returns the model configuration selected by
// current_engine.
func (c *Config) CurrentModel() llm.ModelConfig {
	return c.Models[c.CurrentEngine]
}

// ModelFor resolves a models map key to its configuration.
func (c *Config) ModelFor(name string) (llm.ModelConfig, error) {
	m, ok := c.Models[name]
	if !ok {
		return llm.ModelConfig{}, fmt.Errorf("model %q is not defined in models", name)
	}

	return m, nil
}

// TaskFallbacks returns the fallback chain for a task: the per-task
// override when present, the global chain otherwise.
func (c *Config) TaskFallbacks(task string) []string {
	if tc, ok := c.Retry.Tasks[task]; ok && tc.FallbackModels != nil {
		return tc.FallbackModels
	}

	return c.Retry.FallbackModels
}
