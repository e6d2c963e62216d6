package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the global logrus logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text formatter.
func Init(environment string) {
	logrus.SetOutput(os.Stdout)

	if strings.ToLower(environment) == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}

// WithComponent returns a logger scoped to a named component (mcp, llm, chat...).
func WithComponent(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// WithRequest returns a logger with the request id attached.
// Use this for all logging inside a request handler.
func WithRequest(logger *logrus.Entry, requestID string) *logrus.Entry {
	if requestID == "" {
		return logger
	}
	return logger.WithField("request_id", requestID)
}
