package llm

import (
	"fmt"
	"strings"

	"github.com/Shlokpalrecha/Finguru/internal/common"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint used by the openrouter provider.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOracle creates an oracle for the configured provider, rate limited when
// cfg.RateLimit is positive.
func NewOracle(cfg Config) (Oracle, error) {
	var (
		oracle Oracle
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		oracle, err = newOpenAIOracle(cfg)
	case "openrouter":
		if cfg.BaseURL == "" {
			cfg.BaseURL = OpenRouterBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = "openai/gpt-4.1"
		}
		oracle, err = newOpenAIOracle(cfg)
	case "anthropic":
		oracle, err = newAnthropicOracle(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		oracle = NewRateLimitedOracle(oracle, cfg.RateLimit)
	}
	return oracle, nil
}
