package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"toolbridge/internal/models"
)

// ErrToolNotFound is returned when a name is not in the catalog
var ErrToolNotFound = errors.New("tool not found")

// Registry holds one Adapter per catalog entry.
// It is built once at startup and only read afterwards, so it needs no locking.
type Registry struct {
	catalog  *Catalog
	adapters map[string]*Adapter
}

// NewRegistry builds adapters for every entry of catalog
func NewRegistry(catalog *Catalog, caller Caller, policy SchemaPolicy) *Registry {
	if policy == nil {
		policy = NewPermissiveSchema()
	}

	r := &Registry{
		catalog:  catalog,
		adapters: make(map[string]*Adapter, catalog.Len()),
	}
	for _, desc := range catalog.Tools() {
		r.adapters[desc.Name] = NewAdapter(desc, caller, policy)
	}
	return r
}

// Catalog returns the catalog the registry was built from
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// Get retrieves an adapter by name
func (r *Registry) Get(name string) (*Adapter, bool) {
	adapter, exists := r.adapters[name]
	return adapter, exists
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	return len(r.adapters)
}

// Definitions returns the function definitions for every tool, in catalog order
func (r *Registry) Definitions() []models.ToolDefinition {
	defs := make([]models.ToolDefinition, 0, r.catalog.Len())
	for _, desc := range r.catalog.Tools() {
		defs = append(defs, r.adapters[desc.Name].Definition())
	}
	return defs
}

// Execute runs a tool by name with the raw JSON arguments produced by the model.
// Empty arguments are treated as {}.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (json.RawMessage, error) {
	adapter, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	args := map[string]interface{}{}
	if trimmed := strings.TrimSpace(argsJSON); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return nil, fmt.Errorf("invalid arguments for tool %s: %w", name, err)
		}
	}

	return adapter.Invoke(ctx, args)
}
