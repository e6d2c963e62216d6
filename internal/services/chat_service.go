package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"toolbridge/internal/llm"
	"toolbridge/internal/logging"
	"toolbridge/internal/models"
	"toolbridge/internal/tools"

	"github.com/sirupsen/logrus"
)

// ChatService runs the chat pipeline: prompt assembly, then one model
// invocation with every catalog tool bound.
type ChatService struct {
	assembler *PromptAssembler
	invoker   llm.Invoker
	tools     llm.ToolExecutor
	metrics   *Metrics
	logger    *logrus.Entry
}

// NewChatService creates a new chat service.
// metrics may be nil.
func NewChatService(assembler *PromptAssembler, invoker llm.Invoker, bound llm.ToolExecutor, metrics *Metrics) *ChatService {
	if metrics != nil && bound != nil {
		bound = &meteredTools{next: bound, metrics: metrics, catalog: assembler.catalog}
	}
	return &ChatService{
		assembler: assembler,
		invoker:   invoker,
		tools:     bound,
		metrics:   metrics,
		logger:    logging.WithComponent("chat"),
	}
}

// Chat answers a single stateless prompt. Any failure from the model backend
// or a tool aborts the request; there is no partial result and no retry.
func (s *ChatService) Chat(ctx context.Context, prompt string) (*models.ChatResponse, error) {
	startTime := time.Now()
	if s.metrics != nil {
		s.metrics.RecordChatRequest()
		defer func() { s.metrics.RecordChatLatency(time.Since(startTime).Seconds()) }()
	}

	turns := s.assembler.Assemble(prompt)

	s.logger.WithFields(logrus.Fields{
		"prompt_length": len(prompt),
		"turns":         len(turns),
	}).Debug("Chat pipeline started")

	resp, err := s.invoker.Invoke(ctx, turns, s.tools)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordChatError(errorStage(err))
		}
		s.logger.WithError(err).Warn("Chat pipeline failed")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tool_calls":  len(resp.ToolCalls),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Chat pipeline completed")

	return resp, nil
}

// meteredTools records every model-requested tool call
type meteredTools struct {
	next    llm.ToolExecutor
	metrics *Metrics
	catalog *tools.Catalog
}

func (m *meteredTools) Definitions() []models.ToolDefinition {
	return m.next.Definitions()
}

func (m *meteredTools) Execute(ctx context.Context, name, argsJSON string) (json.RawMessage, error) {
	start := time.Now()
	result, err := m.next.Execute(ctx, name, argsJSON)
	m.metrics.RecordToolInvocation(toolLabel(m.catalog, name), "chat", err, time.Since(start).Seconds())
	if err != nil {
		return nil, &toolFailure{err: err}
	}
	return result, nil
}

// toolFailure marks an error as coming from a bound tool rather than the model
type toolFailure struct {
	err error
}

func (e *toolFailure) Error() string { return e.err.Error() }
func (e *toolFailure) Unwrap() error { return e.err }

func errorStage(err error) string {
	var tf *toolFailure
	if errors.As(err, &tf) {
		return "tool"
	}
	return "model"
}
