// Package oracle talks to the external natural-language proposer: the LLM
// that suggests questions, guesses, and candidate traits. Everything it
// returns is untrusted; the engine re-validates before use.
package oracle

import (
	"context"
	"fmt"

	"telepath/internal/config"
)

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewClient creates an oracle client from configuration.
func NewClient(cfg config.OracleConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini oracle requires an API key (set GEMINI_API_KEY)")
		}
		return NewGeminiClient(cfg.APIKey, cfg.Model)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai oracle requires an API key (set OPENAI_API_KEY)")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "mock":
		return NewMockClient(), nil
	}
	return nil, fmt.Errorf("unknown oracle provider: %q", cfg.Provider)
}
