package client

import (
	"context"
	"fmt"

	"tfpilot/internal/config"
)

// New creates a Client from the configured provider.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	retry := RetryConfig{
		MaxRetries: cfg.API.MaxRetries,
		RetryDelay: cfg.API.RetryDelay,
		MaxDelay:   DefaultRetryConfig().MaxDelay,
	}

	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:          cfg.API.GeminiKey,
			Model:           cfg.Model.Name,
			Temperature:     cfg.Model.Temperature,
			MaxOutputTokens: cfg.Model.MaxOutputTokens,
			Retry:           retry,
		})

	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.API.OllamaBaseURL,
			Model:       cfg.Model.Name,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxOutputTokens,
			Retry:       retry,
		})

	default:
		return nil, fmt.Errorf("unknown provider: %q", cfg.Provider)
	}
}
