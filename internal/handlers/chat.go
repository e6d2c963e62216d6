package handlers

import (
	"context"
	"errors"
	"fmt"

	"toolbridge/internal/logging"
	"toolbridge/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrPromptRequired is returned when /chat is called without a prompt
var ErrPromptRequired = errors.New("prompt is required")

// ChatRunner runs the chat pipeline for one prompt
type ChatRunner interface {
	Chat(ctx context.Context, prompt string) (*models.ChatResponse, error)
}

// ChatHandler handles POST /chat
type ChatHandler struct {
	chat   ChatRunner
	logger *logrus.Entry
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatRunner) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logging.WithComponent("http"),
	}
}

// Handle parses {prompt} and returns the pipeline's output as JSON
func (h *ChatHandler) Handle(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, h.logger, fmt.Errorf("invalid request body: %w", err))
	}
	if req.Prompt == nil {
		return fail(c, h.logger, ErrPromptRequired)
	}

	resp, err := h.chat.Chat(c.UserContext(), *req.Prompt)
	if err != nil {
		return fail(c, h.logger, err)
	}

	return c.JSON(resp)
}
