package client

import (
	"context"

	"google.golang.org/genai"
)

// Client defines the low-level interface for AI model providers. It covers a
// single streamed generation; multi-step turns are driven by TurnRunner.
type Client interface {
	// StreamGenerate streams one model response for the given contents,
	// offering the declared functions for tool calling.
	StreamGenerate(ctx context.Context, contents []*genai.Content, decls []*genai.FunctionDeclaration) (*StreamingResponse, error)

	// GetModel returns the model name.
	GetModel() string

	// SetSystemInstruction sets the system-level instruction for the model.
	SetSystemInstruction(instruction string)

	// Close closes the client connection.
	Close() error
}

// StreamingResponse represents a streaming response from the model.
type StreamingResponse struct {
	// Chunks is a channel that receives response chunks.
	Chunks <-chan ResponseChunk

	// Done is closed when the response is complete.
	Done <-chan struct{}
}

// ResponseChunk represents a single chunk in a streaming response.
type ResponseChunk struct {
	// Text contains any text content in this chunk.
	Text string

	// FunctionCalls contains any function calls in this chunk.
	FunctionCalls []*genai.FunctionCall

	// Error contains any error that occurred.
	Error error

	// Done indicates if this is the final chunk.
	Done bool
}

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}
