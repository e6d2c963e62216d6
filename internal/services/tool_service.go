package services

import (
	"context"
	"encoding/json"
	"time"

	"toolbridge/internal/logging"
	"toolbridge/internal/models"
	"toolbridge/internal/tools"

	"github.com/sirupsen/logrus"
)

// ToolService invokes tools directly on the tool server, bypassing the model.
// The catalog is only consulted for the argument policy and metric labels:
// any name the server accepts can be run.
type ToolService struct {
	caller  tools.Caller
	catalog *tools.Catalog
	policy  tools.SchemaPolicy
	metrics *Metrics
	logger  *logrus.Entry
}

// NewToolService creates a new tool service.
// catalog and metrics may be nil; a nil policy is permissive.
func NewToolService(caller tools.Caller, catalog *tools.Catalog, policy tools.SchemaPolicy, metrics *Metrics) *ToolService {
	if policy == nil {
		policy = tools.NewPermissiveSchema()
	}
	return &ToolService{
		caller:  caller,
		catalog: catalog,
		policy:  policy,
		metrics: metrics,
		logger:  logging.WithComponent("tools"),
	}
}

// Run calls the named tool with params ({} when nil) and returns the tool
// server's JSON answer unmodified.
func (s *ToolService) Run(ctx context.Context, name string, params map[string]interface{}) (json.RawMessage, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	desc, listed := s.lookup(name)
	if err := s.policy.Validate(desc, params); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.caller.CallTool(ctx, name, params)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordToolInvocation(toolLabel(s.catalog, name), "direct", err, elapsed.Seconds())
	}

	logger := s.logger.WithFields(logrus.Fields{
		"tool":        name,
		"listed":      listed,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		logger.WithError(err).Warn("Direct tool invocation failed")
		return nil, err
	}
	logger.WithField("result_length", len(result)).Info("Direct tool invocation completed")

	return result, nil
}

// lookup returns the catalog descriptor for name, or one carrying only the
// name when the tool is not listed
func (s *ToolService) lookup(name string) (models.ToolDescriptor, bool) {
	if s.catalog != nil {
		if desc, ok := s.catalog.Lookup(name); ok {
			return desc, true
		}
	}
	return models.ToolDescriptor{Name: name}, false
}
