package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"tfpilot/internal/logging"
)

// GeminiClient wraps the Google Gemini API.
type GeminiClient struct {
	client            *genai.Client
	model             string
	config            *genai.GenerateContentConfig
	retry             RetryConfig
	systemInstruction string
}

// GeminiConfig holds construction parameters for a GeminiClient.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Retry           RetryConfig
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key required; set GEMINI_API_KEY or api.gemini_key in the config file")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     Ptr(cfg.Temperature),
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		retry: cfg.Retry,
	}, nil
}

// SetSystemInstruction sets the system-level instruction for the model.
func (c *GeminiClient) SetSystemInstruction(instruction string) {
	c.systemInstruction = instruction
}

// GetModel returns the model name.
func (c *GeminiClient) GetModel() string {
	return c.model
}

// Close closes the client connection.
func (c *GeminiClient) Close() error {
	// The genai client has no explicit close.
	return nil
}

// StreamGenerate streams one model response with retry on transient errors.
func (c *GeminiClient) StreamGenerate(ctx context.Context, contents []*genai.Content, decls []*genai.FunctionDeclaration) (*StreamingResponse, error) {
	contents = sanitizeContents(contents)

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.retry.RetryDelay, attempt-1, c.retry.MaxDelay)
			logging.Info("retrying Gemini request", "attempt", attempt, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		response, err := c.doStreamGenerate(ctx, contents, decls)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}
		logging.Warn("Gemini request failed, will retry", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.retry.MaxRetries, lastErr)
}

// doStreamGenerate performs a single streaming request attempt.
func (c *GeminiClient) doStreamGenerate(ctx context.Context, contents []*genai.Content, decls []*genai.FunctionDeclaration) (*StreamingResponse, error) {
	config := *c.config
	if c.systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(c.systemInstruction, genai.RoleUser)
	}
	if len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	iter := c.client.Models.GenerateContentStream(ctx, c.model, contents, &config)

	chunks := make(chan ResponseChunk, 10)
	done := make(chan struct{})

	go func() {
		defer close(chunks)
		defer close(done)

		for resp, err := range iter {
			select {
			case <-ctx.Done():
				select {
				case chunks <- ResponseChunk{Error: ctx.Err(), Done: true}:
				default:
				}
				return
			default:
			}

			if err != nil {
				select {
				case chunks <- ResponseChunk{Error: err, Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if resp == nil {
				return
			}

			chunk := processResponse(resp)
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Done {
				return
			}
		}
	}()

	return &StreamingResponse{
		Chunks: chunks,
		Done:   done,
	}, nil
}

// processResponse converts a Gemini response to a ResponseChunk.
func processResponse(resp *genai.GenerateContentResponse) ResponseChunk {
	chunk := ResponseChunk{}

	if len(resp.Candidates) == 0 {
		chunk.Done = true
		return chunk
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Thought {
				continue
			}
			if part.Text != "" {
				chunk.Text += part.Text
			}
			if part.FunctionCall != nil {
				chunk.FunctionCalls = append(chunk.FunctionCalls, part.FunctionCall)
			}
		}
	}

	if candidate.FinishReason != "" {
		chunk.Done = true
	}
	return chunk
}

// sanitizeContents validates and fixes contents before sending to the API.
// Each part must have exactly one of Text, FunctionCall, or FunctionResponse.
func sanitizeContents(contents []*genai.Content) []*genai.Content {
	var result []*genai.Content

	for _, content := range contents {
		if content == nil {
			continue
		}

		var validParts []*genai.Part
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.FunctionCall != nil || part.FunctionResponse != nil || part.Text != "" {
				validParts = append(validParts, part)
			}
		}
		if len(validParts) == 0 {
			validParts = []*genai.Part{genai.NewPartFromText(" ")}
		}

		result = append(result, &genai.Content{
			Role:  content.Role,
			Parts: validParts,
		})
	}

	if len(result) == 0 {
		result = []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(" ")},
		}}
	}

	return result
}
