package llm

import (
	"context"
	"fmt"
	"os"
)

// Supported model platforms.
const (
	PlatformAnthropic = "anthropic"
	PlatformOpenAI    = "openai"
)

// ModelConfig names one configured model: which platform hosts it, the
// platform model identifier, and the default completion budget.
type ModelConfig struct {
	Platform  string `mapstructure:"platform"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// Provider adapts one platform SDK. Implementations are stateless per
// call; conversation state travels in the request.
type Provider interface {
	// Model returns the platform model identifier.
	Model() string
	// Complete runs a single-turn completion.
	Complete(ctx context.Context, req Request) (*Response, error)
	// StepTools runs one step of a tool-assisted conversation.
	StepTools(ctx context.Context, req ToolRequest) (*Turn, error)
}

// NewProvider builds a Provider for cfg. API keys come from the
// environment: ANTHROPIC_API_KEY or OPENAI_API_KEY depending on the
// platform.
func NewProvider(cfg ModelConfig) (Provider, error) {
	switch cfg.Platform {
	case PlatformAnthropic:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, &MissingKeyError{Platform: PlatformAnthropic, EnvVar: "ANTHROPIC_API_KEY"}
		}

		return newAnthropicProvider(key, cfg.Model), nil
	case PlatformOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, &MissingKeyError{Platform: PlatformOpenAI, EnvVar: "OPENAI_API_KEY"}
		}

		return newOpenAIProvider(key, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown model platform %q (supported: %s, %s)",
			cfg.Platform, PlatformAnthropic, PlatformOpenAI)
	}
}
