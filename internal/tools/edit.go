package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"tfpilot/internal/filetree"
)

// EditFileTool performs create/append/replace operations on template files.
// Mutating: always requires approval.
type EditFileTool struct {
	store *filetree.Store
}

// NewEditFileTool creates a new EditFileTool bound to store.
func NewEditFileTool(store *filetree.Store) *EditFileTool {
	return &EditFileTool{store: store}
}

func (t *EditFileTool) Name() string {
	return "edit_file"
}

func (t *EditFileTool) Description() string {
	return "Edits a file. With empty old_content, creates the file or appends to it. " +
		"Otherwise old_content must occur exactly once in the file and is replaced with new_content."
}

func (t *EditFileTool) RequiresApproval() bool {
	return true
}

func (t *EditFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Path of the file to edit",
				},
				"old_content": {
					Type:        genai.TypeString,
					Description: "Text to replace. Empty to create or append.",
				},
				"new_content": {
					Type:        genai.TypeString,
					Description: "Replacement text",
				},
			},
			Required: []string{"path", "new_content"},
		},
	}
}

func (t *EditFileTool) Validate(args map[string]any) error {
	path, ok := GetString(args, "path")
	if !ok || path == "" {
		return NewValidationError("path", "is required")
	}

	if raw, ok := args["old_content"]; ok {
		if _, ok := raw.(string); !ok {
			return NewValidationError("old_content", "must be a string")
		}
	}

	if _, ok := GetString(args, "new_content"); !ok {
		return NewValidationError("new_content", "is required")
	}

	return nil
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	path, _ := GetString(args, "path")
	oldContent := GetStringDefault(args, "old_content", "")
	newContent, _ := GetString(args, "new_content")

	var action string
	err := t.store.Update(func(tree filetree.Tree) (filetree.Tree, error) {
		if oldContent == "" {
			if !tree.Exists(path) {
				action = "create"
				return tree.WithFile(path, newContent), nil
			}

			current, err := tree.ReadText(path)
			if err != nil {
				return tree, fmt.Errorf("%s is a directory, not a file", path)
			}
			if current == "" {
				action = "overwrite"
				return tree.WithFile(path, newContent), nil
			}
			action = "append"
			return tree.WithFile(path, current+newContent), nil
		}

		current, err := tree.ReadText(path)
		if err != nil {
			return tree, fmt.Errorf("file not found: %s", path)
		}

		switch count := strings.Count(current, oldContent); {
		case count == 0:
			return tree, fmt.Errorf("old_content not found in %s; re-read the file and try again", path)
		case count > 1:
			return tree, fmt.Errorf("old_content appears %d times in %s; add more surrounding context to make the match unique", count, path)
		}

		action = "replace"
		return tree.WithFile(path, strings.Replace(current, oldContent, newContent, 1)), nil
	})
	if err != nil {
		return NewErrorResultWithData(err.Error(), map[string]any{"path": path})
	}

	return NewSuccessResultWithData(
		fmt.Sprintf("%s: %s", action, path),
		map[string]any{"path": path, "action": action},
	)
}
