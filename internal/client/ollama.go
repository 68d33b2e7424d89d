package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"

	"tfpilot/internal/logging"
)

// OllamaConfig holds configuration for the Ollama API client.
type OllamaConfig struct {
	BaseURL     string  // Default: "http://localhost:11434"
	Model       string  // e.g., "llama3.2", "qwen2.5-coder"
	Temperature float32 // Temperature for generation
	MaxTokens   int32   // Max output tokens
	HTTPTimeout time.Duration
	Retry       RetryConfig
}

// OllamaClient implements Client for local Ollama models.
type OllamaClient struct {
	client            *api.Client
	config            OllamaConfig
	systemInstruction string
}

// NewOllamaClient creates a new Ollama API client.
func NewOllamaClient(config OllamaConfig) (*OllamaClient, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 8192
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 120 * time.Second
	}
	if config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryConfig()
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	httpClient := &http.Client{Timeout: config.HTTPTimeout}

	return &OllamaClient{
		client: api.NewClient(baseURL, httpClient),
		config: config,
	}, nil
}

// SetSystemInstruction sets the system-level instruction for the model.
func (c *OllamaClient) SetSystemInstruction(instruction string) {
	c.systemInstruction = instruction
}

// GetModel returns the model name.
func (c *OllamaClient) GetModel() string {
	return c.config.Model
}

// Close closes the client connection.
func (c *OllamaClient) Close() error {
	// The Ollama client requires no explicit close.
	return nil
}

// ListModels returns the models installed on the Ollama server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, wrapOllamaError(err)
	}

	models := make([]string, 0, len(resp.Models))
	for _, model := range resp.Models {
		models = append(models, model.Name)
	}
	return models, nil
}

// StreamGenerate streams one model response with retry on transient errors.
func (c *OllamaClient) StreamGenerate(ctx context.Context, contents []*genai.Content, decls []*genai.FunctionDeclaration) (*StreamingResponse, error) {
	req := &api.ChatRequest{
		Model:    c.config.Model,
		Messages: c.convertContents(contents),
		Stream:   Ptr(true),
		Options: map[string]interface{}{
			"num_predict": c.config.MaxTokens,
		},
	}
	if c.config.Temperature > 0 {
		req.Options["temperature"] = c.config.Temperature
	}
	if len(decls) > 0 {
		req.Tools = convertDeclsToOllama(decls)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(c.config.Retry.RetryDelay, attempt-1, c.config.Retry.MaxDelay)
			logging.Info("retrying Ollama request", "attempt", attempt, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		response, err := c.doStreamChat(ctx, req)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, wrapOllamaError(err)
		}
		logging.Warn("Ollama request failed, will retry", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.config.Retry.MaxRetries, wrapOllamaError(lastErr))
}

// doStreamChat performs a single streaming chat request.
func (c *OllamaClient) doStreamChat(ctx context.Context, req *api.ChatRequest) (*StreamingResponse, error) {
	chunks := make(chan ResponseChunk, 10)
	done := make(chan struct{})

	go func() {
		defer close(chunks)
		defer close(done)

		err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			chunk := ResponseChunk{Text: resp.Message.Content}

			for _, tc := range resp.Message.ToolCalls {
				chunk.FunctionCalls = append(chunk.FunctionCalls, convertOllamaToolCall(tc))
			}
			if resp.Done {
				chunk.Done = true
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			select {
			case chunks <- ResponseChunk{Error: wrapOllamaError(err), Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return &StreamingResponse{
		Chunks: chunks,
		Done:   done,
	}, nil
}

// convertContents converts genai history to Ollama chat messages.
func (c *OllamaClient) convertContents(contents []*genai.Content) []api.Message {
	messages := make([]api.Message, 0, len(contents)+1)

	if c.systemInstruction != "" {
		messages = append(messages, api.Message{Role: "system", Content: c.systemInstruction})
	}

	for _, content := range contents {
		if content == nil {
			continue
		}

		role := "user"
		if content.Role == genai.RoleModel {
			role = "assistant"
		}

		var textParts []string
		var toolCalls []api.ToolCall
		var results []api.Message

		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
			if part.FunctionCall != nil {
				args := api.NewToolCallFunctionArguments()
				for k, v := range part.FunctionCall.Args {
					args.Set(k, v)
				}
				toolCalls = append(toolCalls, api.ToolCall{
					ID: part.FunctionCall.ID,
					Function: api.ToolCallFunction{
						Name:      part.FunctionCall.Name,
						Arguments: args,
					},
				})
			}
			if part.FunctionResponse != nil {
				results = append(results, api.Message{
					Role:       "tool",
					Content:    resultContent(part.FunctionResponse.Response),
					ToolName:   part.FunctionResponse.Name,
					ToolCallID: part.FunctionResponse.ID,
				})
			}
		}

		// Tool results become standalone tool-role messages.
		if len(results) > 0 {
			messages = append(messages, results...)
			continue
		}

		messages = append(messages, api.Message{
			Role:      role,
			Content:   strings.Join(textParts, "\n"),
			ToolCalls: toolCalls,
		})
	}

	return messages
}

// resultContent flattens a function response map to text for Ollama.
func resultContent(response map[string]any) string {
	if response == nil {
		return "Operation completed"
	}
	if errStr, ok := response["error"].(string); ok && errStr != "" {
		return "Error: " + errStr
	}
	if val, ok := response["content"].(string); ok && val != "" {
		return val
	}
	return "Operation completed"
}

// convertDeclsToOllama converts genai declarations to Ollama tool definitions.
func convertDeclsToOllama(decls []*genai.FunctionDeclaration) []api.Tool {
	tools := make([]api.Tool, 0, len(decls))

	for _, decl := range decls {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Properties: api.NewToolPropertiesMap(),
		}

		if decl.Parameters != nil {
			if len(decl.Parameters.Required) > 0 {
				params.Required = decl.Parameters.Required
			}
			for name, propSchema := range decl.Parameters.Properties {
				prop := api.ToolProperty{
					Description: propSchema.Description,
				}
				if propSchema.Type != "" {
					prop.Type = api.PropertyType{strings.ToLower(string(propSchema.Type))}
				}
				params.Properties.Set(name, prop)
			}
		}

		tools = append(tools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  params,
			},
		})
	}

	return tools
}

// convertOllamaToolCall converts an Ollama tool call to the genai shape.
// A missing ID is passed through empty: the turn runner assigns the uuid,
// so identity stays unique across chunks and turns. Deriving one here from
// chunk-local indexes would collide.
func convertOllamaToolCall(tc api.ToolCall) *genai.FunctionCall {
	return &genai.FunctionCall{
		ID:   tc.ID,
		Name: tc.Function.Name,
		Args: tc.Function.Arguments.ToMap(),
	}
}

// wrapOllamaError adds a hint for the common connection failure.
func wrapOllamaError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("cannot reach Ollama (is 'ollama serve' running?): %w", err)
	}
	return err
}
