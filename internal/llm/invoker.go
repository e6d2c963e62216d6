// Package llm is the boundary to the OpenAI-compatible model backend.
//
// The tool-call loop (call a tool, feed the result back, ask again) lives here
// and nowhere else; callers only supply the conversation and the tools.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"toolbridge/internal/logging"
	"toolbridge/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMaxIterations is returned when the model keeps asking for tools
	ErrMaxIterations = errors.New("max tool iterations reached without final response")
	// ErrNoChoices is returned when the backend answers without any choice
	ErrNoChoices = errors.New("no choices in response")
)

// ToolExecutor is the set of tools bound to a model invocation
type ToolExecutor interface {
	Definitions() []models.ToolDefinition
	Execute(ctx context.Context, name, argsJSON string) (json.RawMessage, error)
}

// Invoker produces the model's final message for a conversation, resolving any
// tool calls the model asks for through tools.
type Invoker interface {
	Invoke(ctx context.Context, turns []models.ConversationTurn, tools ToolExecutor) (*models.ChatResponse, error)
}

// Config holds the model backend settings
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float32
	MaxTokens         int
	MaxToolIterations int
}

// OpenAIInvoker implements Invoker over the chat-completions API
type OpenAIInvoker struct {
	api    *openai.Client
	cfg    Config
	logger *logrus.Entry
}

// NewOpenAIInvoker creates an invoker for an OpenAI-compatible backend.
// BaseURL lets it target LM Studio, Ollama, vLLM and friends.
func NewOpenAIInvoker(cfg Config) *OpenAIInvoker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 10
	}

	return &OpenAIInvoker{
		api:    openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logging.WithComponent("llm").WithField("model", cfg.Model),
	}
}

// Invoke sends the conversation with the tool definitions attached and keeps
// executing requested tool calls until the model answers without any.
// A failing tool aborts the whole invocation.
func (c *OpenAIInvoker) Invoke(ctx context.Context, turns []models.ConversationTurn, tools ToolExecutor) (*models.ChatResponse, error) {
	startTime := time.Now()

	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		msg, err := mapTurn(turn)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if tools != nil {
		if defs := tools.Definitions(); len(defs) > 0 {
			req.Tools = convertTools(defs)
			req.ToolChoice = "auto"
		}
	}

	usage := &models.TokenUsage{}
	var records []models.ToolCallRecord

	for iteration := 0; iteration < c.cfg.MaxToolIterations; iteration++ {
		c.logger.WithFields(logrus.Fields{
			"iteration":      iteration + 1,
			"messages_count": len(req.Messages),
			"tools_count":    len(req.Tools),
		}).Debug("LLM request started")

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			c.logger.WithError(err).WithField("duration_ms", time.Since(startTime).Milliseconds()).Error("LLM API request failed")
			return nil, fmt.Errorf("model backend error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, ErrNoChoices
		}

		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens
		usage.TotalTokens += resp.Usage.TotalTokens

		choice := resp.Choices[0]
		message := choice.Message

		if len(message.ToolCalls) == 0 {
			c.logger.WithFields(logrus.Fields{
				"iterations":     iteration + 1,
				"tool_calls":     len(records),
				"content_length": len(message.Content),
				"duration_ms":    time.Since(startTime).Milliseconds(),
			}).Info("LLM response received")

			return &models.ChatResponse{
				Role:         message.Role,
				Content:      message.Content,
				FinishReason: string(choice.FinishReason),
				Model:        resp.Model,
				Usage:        usage,
				ToolCalls:    records,
			}, nil
		}

		if tools == nil {
			return nil, fmt.Errorf("model requested tool %s but no tools are bound", message.ToolCalls[0].Function.Name)
		}

		c.logger.WithField("count", len(message.ToolCalls)).Info("Model requested tool call(s)")

		// The assistant turn carrying the calls must precede the tool results
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   message.Content,
			ToolCalls: message.ToolCalls,
		})

		for _, tc := range message.ToolCalls {
			result, err := tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				c.logger.WithError(err).WithField("tool", tc.Function.Name).Warn("Tool execution failed")
				return nil, fmt.Errorf("tool %s failed: %w", tc.Function.Name, err)
			}

			records = append(records, models.ToolCallRecord{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
				Result:    result,
			})
			req.Messages = append(req.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(result),
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})

			c.logger.WithFields(logrus.Fields{
				"tool":          tc.Function.Name,
				"result_length": len(result),
			}).Debug("Tool executed")
		}
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, c.cfg.MaxToolIterations)
}

// ListModels returns the model ids the backend advertises
func (c *OpenAIInvoker) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("model backend error: %w", err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func mapTurn(turn models.ConversationTurn) (openai.ChatCompletionMessage, error) {
	switch turn.Role {
	case models.RoleSystem:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: turn.Content}, nil
	case models.RoleHuman:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Content}, nil
	default:
		return openai.ChatCompletionMessage{}, fmt.Errorf("unsupported conversation role %q", turn.Role)
	}
}

func convertTools(defs []models.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(defs))
	for i, def := range defs {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return result
}
