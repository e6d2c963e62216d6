package handlers

import (
	"time"

	"toolbridge/internal/tools"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	catalog *tools.Catalog
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(catalog *tools.Catalog) *HealthHandler {
	return &HealthHandler{catalog: catalog}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"tools":     h.catalog.Len(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
