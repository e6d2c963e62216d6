package services

import (
	"toolbridge/internal/tools"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Chat metrics
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	ChatErrors         *prometheus.CounterVec

	// Tool metrics
	ToolInvocations *prometheus.CounterVec
	ToolLatency     *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production so /metrics exposes them.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChatRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "toolbridge_chat_requests_total",
			Help: "Total number of chat requests processed",
		}),

		ChatRequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "toolbridge_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // local models can be slow
		}),

		// stage: "model" or "tool"
		ChatErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbridge_chat_errors_total",
			Help: "Total number of chat errors by pipeline stage",
		}, []string{"stage"}),

		// source: "chat" (model-requested) or "direct" (/run-tool)
		ToolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbridge_tool_invocations_total",
			Help: "Total number of tool server invocations by tool, source and outcome",
		}, []string{"tool", "source", "outcome"}),

		ToolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolbridge_tool_invocation_duration_seconds",
			Help:    "Tool server invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest() {
	m.ChatRequests.Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	m.ChatRequestLatency.Observe(seconds)
}

// RecordChatError records a chat error at the given stage
func (m *Metrics) RecordChatError(stage string) {
	m.ChatErrors.WithLabelValues(stage).Inc()
}

// unknownTool labels calls to names outside the catalog so callers cannot
// create new series
const unknownTool = "unknown"

// toolLabel returns name if the catalog lists it, unknownTool otherwise
func toolLabel(catalog *tools.Catalog, name string) string {
	if catalog != nil {
		if _, ok := catalog.Lookup(name); ok {
			return name
		}
	}
	return unknownTool
}

// RecordToolInvocation records one tool server call.
// tool must come from toolLabel.
func (m *Metrics) RecordToolInvocation(tool, source string, err error, seconds float64) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ToolInvocations.WithLabelValues(tool, source, outcome).Inc()
	m.ToolLatency.WithLabelValues(tool).Observe(seconds)
}
