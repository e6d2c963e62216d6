package tools

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"toolbridge/internal/models"
)

// SchemaPolicy decides which argument schema a tool advertises to the model
// and whether a given argument set may be dispatched.
type SchemaPolicy interface {
	Parameters(desc models.ToolDescriptor) map[string]interface{}
	Validate(desc models.ToolDescriptor, args map[string]interface{}) error
}

// permissiveSchemaJSON accepts any JSON object
const permissiveSchemaJSON = `{"type": "object", "additionalProperties": true}`

// PermissiveSchema accepts any JSON object for every tool
type PermissiveSchema struct {
	schema *jsonschema.Schema
}

// NewPermissiveSchema compiles the permissive policy
func NewPermissiveSchema() *PermissiveSchema {
	return &PermissiveSchema{
		schema: jsonschema.MustCompileString("permissive.json", permissiveSchemaJSON),
	}
}

// Parameters returns an open object schema. A fresh map is returned on every
// call so callers may not mutate a shared value.
func (p *PermissiveSchema) Parameters(desc models.ToolDescriptor) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{},
		"additionalProperties": true,
	}
}

// Validate only checks that args is an object
func (p *PermissiveSchema) Validate(desc models.ToolDescriptor, args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := p.schema.Validate(args); err != nil {
		return fmt.Errorf("arguments for tool %s rejected: %w", desc.Name, err)
	}
	return nil
}
