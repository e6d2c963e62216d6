package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"toolbridge/internal/models"
)

var (
	// ErrDuplicateTool is returned when the tool server lists the same name twice
	ErrDuplicateTool = errors.New("duplicate tool name in catalog")
	// ErrEmptyToolName is returned when the tool server lists a tool without a name
	ErrEmptyToolName = errors.New("tool name cannot be empty")
)

// Lister enumerates the tools offered by the remote tool server
type Lister interface {
	ListTools(ctx context.Context) ([]models.ToolDescriptor, error)
}

// Catalog is the ordered, immutable set of tools available for the lifetime
// of the process. Order is the order returned by the tool server.
type Catalog struct {
	tools []models.ToolDescriptor
	index map[string]int
}

// NewCatalog builds a catalog from descriptors, rejecting empty and duplicate names
func NewCatalog(descriptors []models.ToolDescriptor) (*Catalog, error) {
	c := &Catalog{
		tools: make([]models.ToolDescriptor, 0, len(descriptors)),
		index: make(map[string]int, len(descriptors)),
	}

	for i, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("%w (entry %d)", ErrEmptyToolName, i)
		}
		if prev, exists := c.index[d.Name]; exists {
			return nil, fmt.Errorf("%w: %q at entries %d and %d", ErrDuplicateTool, d.Name, prev, i)
		}
		c.index[d.Name] = len(c.tools)
		c.tools = append(c.tools, d)
	}

	return c, nil
}

// LoadCatalog fetches the tool list once and builds the catalog.
// There is no retry: the caller is expected to treat an error as fatal.
func LoadCatalog(ctx context.Context, lister Lister) (*Catalog, error) {
	descriptors, err := lister.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}

	catalog, err := NewCatalog(descriptors)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}
	return catalog, nil
}

// Tools returns a copy of the descriptors in catalog order
func (c *Catalog) Tools() []models.ToolDescriptor {
	out := make([]models.ToolDescriptor, len(c.tools))
	copy(out, c.tools)
	return out
}

// Lookup finds a descriptor by name
func (c *Catalog) Lookup(name string) (models.ToolDescriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return models.ToolDescriptor{}, false
	}
	return c.tools[i], true
}

// Len returns the number of tools in the catalog
func (c *Catalog) Len() int {
	return len(c.tools)
}

// Describe renders one "- name: description" line per tool, in catalog order
func (c *Catalog) Describe() string {
	lines := make([]string, len(c.tools))
	for i, t := range c.tools {
		lines[i] = fmt.Sprintf("- %s: %s", t.Name, t.Description)
	}
	return strings.Join(lines, "\n")
}
