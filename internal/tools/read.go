package tools

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"tfpilot/internal/filetree"
)

// ReadFileTool reads a single file from the template tree. Read-only,
// always auto-executes.
type ReadFileTool struct {
	store *filetree.Store
}

// NewReadFileTool creates a new ReadFileTool bound to store.
func NewReadFileTool(store *filetree.Store) *ReadFileTool {
	return &ReadFileTool{store: store}
}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Reads the content of a file in the template."
}

func (t *ReadFileTool) RequiresApproval() bool {
	return false
}

func (t *ReadFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Path of the file to read",
				},
			},
			Required: []string{"path"},
		},
	}
}

func (t *ReadFileTool) Validate(args map[string]any) error {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return NewValidationError("path", "is required")
	}
	return nil
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	path, _ := GetString(args, "path")

	content, err := t.store.Snapshot().ReadText(path)
	if err != nil {
		if errors.Is(err, filetree.ErrNotFile) {
			return NewErrorResultWithData(
				fmt.Sprintf("%s is a directory, not a file", path),
				map[string]any{"path": path},
			)
		}
		return NewErrorResultWithData(
			fmt.Sprintf("file not found: %s", path),
			map[string]any{"path": path},
		)
	}

	return NewSuccessResultWithData(content, map[string]any{"path": path})
}
