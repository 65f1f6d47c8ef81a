package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tripflow/tripflow/pkg/domain"
)

// Registry holds the tools available to an agent run. It is built per
// deployment and injected where needed; nothing in this package keeps global
// state.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	return tool, nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool definitions for the named tools, in order.
// Unknown names are skipped.
func (r *Registry) Definitions(names []string) []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.ToolDefinition, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			defs = append(defs, tool.Definition())
		}
	}
	return defs
}

// AllDefinitions returns definitions for every registered tool, sorted by
// name.
func (r *Registry) AllDefinitions() []domain.ToolDefinition {
	return r.Definitions(r.Names())
}
