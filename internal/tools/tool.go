package tools

import (
	"context"

	"google.golang.org/genai"
)

// Tool defines the interface for all tools exposed to the model.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Declaration returns the function declaration for this tool.
	Declaration() *genai.FunctionDeclaration

	// RequiresApproval reports whether execution must wait for explicit
	// user confirmation. Read-only tools auto-execute.
	RequiresApproval() bool

	// Validate validates the arguments before execution.
	Validate(args map[string]any) error

	// Execute runs the tool with the given arguments. Failures are
	// reported in the result, never as a Go error.
	Execute(ctx context.Context, args map[string]any) ToolResult
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	// Content is the main result content (usually text).
	Content string

	// Data contains structured data if applicable.
	Data map[string]any

	// Error contains an error message if the tool failed.
	Error string

	// Success indicates if the tool executed successfully.
	Success bool
}

// NewSuccessResult creates a successful tool result.
func NewSuccessResult(content string) ToolResult {
	return ToolResult{
		Content: content,
		Success: true,
	}
}

// NewSuccessResultWithData creates a successful tool result with additional data.
func NewSuccessResultWithData(content string, data map[string]any) ToolResult {
	return ToolResult{
		Content: content,
		Data:    data,
		Success: true,
	}
}

// NewErrorResult creates a failed tool result.
func NewErrorResult(errMsg string) ToolResult {
	return ToolResult{
		Error:   errMsg,
		Success: false,
	}
}

// NewErrorResultWithData creates a failed tool result with additional data.
func NewErrorResultWithData(errMsg string, data map[string]any) ToolResult {
	return ToolResult{
		Error:   errMsg,
		Data:    data,
		Success: false,
	}
}

// ToMap converts the result to a map for the model's function response.
// Structured data fields are inlined alongside success/error.
func (r ToolResult) ToMap() map[string]any {
	result := make(map[string]any, len(r.Data)+2)
	for k, v := range r.Data {
		result[k] = v
	}

	result["success"] = r.Success
	if r.Success {
		if r.Content != "" {
			result["content"] = r.Content
		}
	} else {
		result["error"] = r.Error
	}

	return result
}

// ValidationError represents a tool argument validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// GetString extracts a string argument from the args map.
func GetString(args map[string]any, key string) (string, bool) {
	val, ok := args[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetStringDefault extracts a string argument with a default value.
func GetStringDefault(args map[string]any, key, defaultVal string) string {
	if val, ok := GetString(args, key); ok {
		return val
	}
	return defaultVal
}
