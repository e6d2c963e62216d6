package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Conversation roles used by the prompt assembler
const (
	RoleSystem = "system"
	RoleHuman  = "human"
)

// ConversationTurn is one message of the two-turn conversation built per chat request
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Prompt *string `json:"prompt"`
}

// RunToolRequest is the body of POST /run-tool.
// Params stays raw so an absent member can be told apart from null.
type RunToolRequest struct {
	Name   *string         `json:"name"`
	Params json.RawMessage `json:"params"`
}

// Arguments returns params as an object. An absent member defaults to {};
// null and non-object values are rejected.
func (r *RunToolRequest) Arguments() (map[string]interface{}, error) {
	if len(r.Params) == 0 {
		return map[string]interface{}{}, nil
	}

	var params map[string]interface{}
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return nil, fmt.Errorf("params must be an object: %w", err)
	}
	if params == nil {
		return nil, errors.New("params must be an object, got null")
	}
	return params, nil
}

// ChatResponse is the final model message returned by the chat pipeline
type ChatResponse struct {
	Role         string           `json:"role"`
	Content      string           `json:"content"`
	FinishReason string           `json:"finish_reason,omitempty"`
	Model        string           `json:"model,omitempty"`
	Usage        *TokenUsage      `json:"usage,omitempty"`
	ToolCalls    []ToolCallRecord `json:"tool_calls,omitempty"`
}

// TokenUsage mirrors the usage block of a chat completion, summed across rounds
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolCallRecord describes one tool call the model made while answering
type ToolCallRecord struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Arguments string               `json:"arguments"`
	Result    ToolInvocationResult `json:"result,omitempty"`
}

// ErrorResponse is the body returned on any handler failure
type ErrorResponse struct {
	Error string `json:"error"`
}
