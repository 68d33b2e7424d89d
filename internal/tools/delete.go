package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"tfpilot/internal/filetree"
)

// DeleteFileTool removes a file or directory from the template tree.
// Mutating: always requires approval.
type DeleteFileTool struct {
	store *filetree.Store
}

// NewDeleteFileTool creates a new DeleteFileTool bound to store.
func NewDeleteFileTool(store *filetree.Store) *DeleteFileTool {
	return &DeleteFileTool{store: store}
}

func (t *DeleteFileTool) Name() string {
	return "delete_file"
}

func (t *DeleteFileTool) Description() string {
	return "Deletes a file from the template. Deleting a directory removes its whole subtree."
}

func (t *DeleteFileTool) RequiresApproval() bool {
	return true
}

func (t *DeleteFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Path of the file to delete",
				},
			},
			Required: []string{"path"},
		},
	}
}

func (t *DeleteFileTool) Validate(args map[string]any) error {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return NewValidationError("path", "is required")
	}
	return nil
}

func (t *DeleteFileTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	path, _ := GetString(args, "path")

	err := t.store.Update(func(tree filetree.Tree) (filetree.Tree, error) {
		next, err := tree.Without(path)
		if err != nil {
			return tree, fmt.Errorf("path not found: %s", path)
		}
		return next, nil
	})
	if err != nil {
		return NewErrorResultWithData(err.Error(), map[string]any{"path": path})
	}

	return NewSuccessResultWithData(
		fmt.Sprintf("deleted %s", path),
		map[string]any{"path": path, "action": "delete"},
	)
}
