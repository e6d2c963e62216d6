package tools

import (
	"context"
	"encoding/json"

	"toolbridge/internal/models"
)

// Caller dispatches a single named tool call to the remote tool server
type Caller interface {
	CallTool(ctx context.Context, name string, params map[string]interface{}) (json.RawMessage, error)
}

// Adapter is the uniform callable built for one catalog entry
type Adapter struct {
	desc   models.ToolDescriptor
	caller Caller
	policy SchemaPolicy
}

// NewAdapter wraps desc so it can be invoked with an argument map
func NewAdapter(desc models.ToolDescriptor, caller Caller, policy SchemaPolicy) *Adapter {
	return &Adapter{desc: desc, caller: caller, policy: policy}
}

// Name returns the tool name
func (a *Adapter) Name() string { return a.desc.Name }

// Description returns the tool description shown to the model
func (a *Adapter) Description() string { return a.desc.Description }

// Definition returns the function-calling definition for the model
func (a *Adapter) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        a.desc.Name,
		Description: a.desc.Description,
		Parameters:  a.policy.Parameters(a.desc),
	}
}

// Invoke validates args against the schema policy and issues one remote call.
// The tool server's JSON answer is returned unmodified.
func (a *Adapter) Invoke(ctx context.Context, args map[string]interface{}) (json.RawMessage, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := a.policy.Validate(a.desc, args); err != nil {
		return nil, err
	}
	return a.caller.CallTool(ctx, a.desc.Name, args)
}
