package models

import "encoding/json"

// ToolDescriptor is a tool advertised by the remote tool server
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolDefinition is the model-facing shape of a tool (function calling format)
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolInvocationRequest is the body sent to the tool server for a single call.
// The same shape is accepted by POST /run-tool.
type ToolInvocationRequest struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

// ToolInvocationResult is whatever JSON the tool server returned, untouched
type ToolInvocationResult = json.RawMessage

// JSONRPCRequest represents a JSON-RPC 2.0 request.
// A request without ID is a notification.
type JSONRPCRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      string                 `json:"id,omitempty"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ToolsListResult is the result member of a tools/list response
type ToolsListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}
