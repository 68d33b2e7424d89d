package tools

import (
	"fmt"
	"sync"

	"google.golang.org/genai"

	"tfpilot/internal/filetree"
	"tfpilot/internal/logging"
)

// Registry manages the collection of available tools. It is stateless
// between calls; all side effects live in the file-tree store the tools
// are bound to.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

// MustRegister adds a tool to the registry and logs a warning on error.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		logging.Warn("failed to register tool", "tool", tool.Name(), "error", err)
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// ApprovalRequired reports whether the named tool must be confirmed by the
// user before execution. Unknown tools never require approval; they fail
// at execution instead.
func (r *Registry) ApprovalRequired(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return ok && tool.RequiresApproval()
}

// Declarations returns all tool declarations.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declarations := make([]*genai.FunctionDeclaration, 0, len(r.tools))
	for _, tool := range r.tools {
		declarations = append(declarations, tool.Declaration())
	}
	return declarations
}

// GeminiTools returns the tools in genai format.
func (r *Registry) GeminiTools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: r.Declarations(),
		},
	}
}

// DefaultRegistry creates a registry with the file-tree tools bound to store.
func DefaultRegistry(store *filetree.Store) *Registry {
	r := NewRegistry()

	r.MustRegister(NewListFilesTool(store))
	r.MustRegister(NewReadFileTool(store))
	r.MustRegister(NewEditFileTool(store))
	r.MustRegister(NewDeleteFileTool(store))

	return r
}
