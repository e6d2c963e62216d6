package handlers

import (
	"toolbridge/internal/logging"
	"toolbridge/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// requestLogger attaches the id set by the requestid middleware, if any
func requestLogger(c *fiber.Ctx, logger *logrus.Entry) *logrus.Entry {
	requestID, _ := c.Locals("requestid").(string)
	return logging.WithRequest(logger, requestID)
}

// fail logs err once and answers with the generic failure status.
// Validation problems use the same status as upstream failures.
func fail(c *fiber.Ctx, logger *logrus.Entry, err error) error {
	requestLogger(c, logger).WithError(err).WithField("path", c.Path()).Error("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: err.Error(),
	})
}
