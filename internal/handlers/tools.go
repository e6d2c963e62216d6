package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"toolbridge/internal/logging"
	"toolbridge/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrNameRequired is returned when /run-tool is called without a tool name
var ErrNameRequired = errors.New("name is required")

// ToolRunner invokes a tool directly on the tool server
type ToolRunner interface {
	Run(ctx context.Context, name string, params map[string]interface{}) (json.RawMessage, error)
}

// ToolsHandler handles POST /run-tool
type ToolsHandler struct {
	tools  ToolRunner
	logger *logrus.Entry
}

// NewToolsHandler creates a new tools handler
func NewToolsHandler(tools ToolRunner) *ToolsHandler {
	return &ToolsHandler{
		tools:  tools,
		logger: logging.WithComponent("http"),
	}
}

// RunTool bypasses the model and forwards the tool server's JSON verbatim
func (h *ToolsHandler) RunTool(c *fiber.Ctx) error {
	var req models.RunToolRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, h.logger, fmt.Errorf("invalid request body: %w", err))
	}
	// An empty name is still a name; the tool server decides what to do with it
	if req.Name == nil {
		return fail(c, h.logger, ErrNameRequired)
	}

	params, err := req.Arguments()
	if err != nil {
		return fail(c, h.logger, err)
	}

	result, err := h.tools.Run(c.UserContext(), *req.Name, params)
	if err != nil {
		return fail(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(result)
}
