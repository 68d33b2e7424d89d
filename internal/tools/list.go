package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"google.golang.org/genai"

	"tfpilot/internal/filetree"
)

// ListFilesTool lists the files in the template tree. Read-only, always
// auto-executes.
type ListFilesTool struct {
	store *filetree.Store
}

// NewListFilesTool creates a new ListFilesTool bound to store.
func NewListFilesTool(store *filetree.Store) *ListFilesTool {
	return &ListFilesTool{store: store}
}

func (t *ListFilesTool) Name() string {
	return "list_files"
}

func (t *ListFilesTool) Description() string {
	return "Lists the files in the template. Optionally filter with a glob pattern like '**/*.tf'."
}

func (t *ListFilesTool) RequiresApproval() bool {
	return false
}

func (t *ListFilesTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"pattern": {
					Type:        genai.TypeString,
					Description: "Optional glob pattern to filter paths (doublestar syntax)",
				},
			},
		},
	}
}

func (t *ListFilesTool) Validate(args map[string]any) error {
	if raw, ok := args["pattern"]; ok {
		pattern, ok := raw.(string)
		if !ok {
			return NewValidationError("pattern", "must be a string")
		}
		if !doublestar.ValidatePattern(pattern) {
			return NewValidationError("pattern", "invalid glob pattern")
		}
	}
	return nil
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	pattern := GetStringDefault(args, "pattern", "")

	tree := t.store.Snapshot()
	paths := tree.Paths()

	if pattern != "" {
		filtered := paths[:0]
		for _, p := range paths {
			ok, err := doublestar.Match(pattern, p)
			if err != nil {
				return NewErrorResult(fmt.Sprintf("invalid pattern: %s", err))
			}
			if ok {
				filtered = append(filtered, p)
			}
		}
		paths = filtered
	}

	return NewSuccessResultWithData(strings.Join(paths, "\n"), map[string]any{
		"paths": paths,
		"count": len(paths),
	})
}
