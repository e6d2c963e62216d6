package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"toolbridge/internal/logging"
	"toolbridge/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUpstreamStatus is returned when the tool server answers with a non-2xx status
	ErrUpstreamStatus = errors.New("tool server returned non-2xx status")
	// ErrInvalidJSON is returned when the tool server body is not valid JSON
	ErrInvalidJSON = errors.New("tool server returned invalid JSON")
)

const (
	// SessionHeader carries the streamable-HTTP session id
	SessionHeader = "Mcp-Session-Id"

	protocolVersion = "2025-03-26"
)

// Client talks to the remote tool server over HTTP.
// A single Client is shared by every request; the only state it keeps is the
// session id handed out by the server during initialize.
type Client struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
	logger     *logrus.Entry

	mu        sync.RWMutex
	sessionID string
}

type response struct {
	body   []byte
	header http.Header
}

func (r *response) payload() ([]byte, error) {
	if strings.HasPrefix(r.header.Get("Content-Type"), "text/event-stream") {
		return firstEventData(r.body)
	}
	return r.body, nil
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger replaces the component logger
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the tool server at url.
// headers are sent on every request (auth headers, tenant ids...).
// The default http.Client has no timeout: a hung tool server hangs the caller.
func NewClient(url string, headers map[string]string, opts ...Option) *Client {
	hdrs := make(map[string]string, len(headers))
	for k, v := range headers {
		hdrs[k] = v
	}

	c := &Client{
		url:        url,
		headers:    hdrs,
		httpClient: &http.Client{},
		logger:     logging.WithComponent("mcp").WithField("url", url),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the tool server endpoint this client targets
func (c *Client) URL() string {
	return c.url
}

// SessionID returns the session id negotiated during initialize, if any
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// ListTools opens an MCP session and asks the tool server for its catalog with
// a JSON-RPC tools/list call. Accepted answers: a JSON-RPC envelope, a bare
// array of descriptors, an object with a top-level "tools" array, or an SSE
// stream whose data line carries one of those.
func (c *Client) ListTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	if err := c.initialize(ctx); err != nil {
		return nil, err
	}

	rpc := models.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "tools/list",
		Params:  map[string]interface{}{},
	}

	resp, err := c.post(ctx, rpc)
	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	body, err := resp.payload()
	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	tools, err := decodeToolList(body)
	if err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}

	c.logger.WithField("tool_count", len(tools)).Info("Fetched tool catalog")
	return tools, nil
}

// initialize performs the initialize / notifications/initialized exchange and
// keeps the session id the server returns. Plain tool servers that do not
// speak the handshake answer with an error status or a JSON-RPC error; the
// client then carries on without a session. Transport failures are returned.
func (c *Client) initialize(ctx context.Context) error {
	rpc := models.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]interface{}{},
			"clientInfo": map[string]interface{}{
				"name":    "toolbridge",
				"version": "1.0.0",
			},
		},
	}

	resp, err := c.post(ctx, rpc)
	if err != nil {
		if errors.Is(err, ErrUpstreamStatus) {
			c.logger.WithError(err).Debug("Server does not support initialize, continuing without session")
			return nil
		}
		return fmt.Errorf("initialize failed: %w", err)
	}

	if body, err := resp.payload(); err == nil {
		var envelope struct {
			Error *models.JSONRPCError `json:"error"`
		}
		if json.Unmarshal(bytes.TrimSpace(body), &envelope) == nil && envelope.Error != nil {
			c.logger.WithField("rpc_error", envelope.Error.Message).Debug("Server rejected initialize, continuing without session")
			return nil
		}
	}

	if id := resp.header.Get(SessionHeader); id != "" {
		c.mu.Lock()
		c.sessionID = id
		c.mu.Unlock()
		c.logger.WithField("session_id", id).Info("MCP session established")
	}

	notify := models.JSONRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"}
	if _, err := c.post(ctx, notify); err != nil {
		if errors.Is(err, ErrUpstreamStatus) {
			c.logger.WithError(err).Warn("Server rejected initialized notification")
			return nil
		}
		return fmt.Errorf("initialized notification failed: %w", err)
	}
	return nil
}

// CallTool invokes a tool by name. The body sent is {"name": name, "params": params}
// and the response body is returned unmodified once it is known to be valid JSON.
func (c *Client) CallTool(ctx context.Context, name string, params map[string]interface{}) (json.RawMessage, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	logger := c.logger.WithField("tool", name)
	logger.WithField("param_count", len(params)).Debug("Calling tool")

	resp, err := c.post(ctx, models.ToolInvocationRequest{Name: name, Params: params})
	if err != nil {
		logger.WithError(err).Warn("Tool call failed")
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}

	body := resp.body
	if !json.Valid(bytes.TrimSpace(body)) {
		logger.WithField("body_length", len(body)).Warn("Tool returned non-JSON body")
		return nil, fmt.Errorf("tool %s: %w: %s", name, ErrInvalidJSON, truncate(string(body), 200))
	}

	logger.WithField("result_length", len(body)).Debug("Tool call completed")
	return json.RawMessage(body), nil
}

func (c *Client) post(ctx context.Context, payload interface{}) (*response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if session := c.SessionID(); session != "" {
		req.Header.Set(SessionHeader, session)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status=%d, body=%s", ErrUpstreamStatus, resp.StatusCode, truncate(string(body), 200))
	}

	return &response{body: body, header: resp.Header}, nil
}

func decodeToolList(body []byte) ([]models.ToolDescriptor, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidJSON)
	}

	if trimmed[0] == '[' {
		var tools []models.ToolDescriptor
		if err := json.Unmarshal(trimmed, &tools); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return tools, nil
	}

	var envelope struct {
		Result *models.ToolsListResult `json:"result"`
		Error  *models.JSONRPCError    `json:"error"`
		Tools  []models.ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	switch {
	case envelope.Error != nil:
		return nil, fmt.Errorf("json-rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	case envelope.Result != nil:
		return envelope.Result.Tools, nil
	case envelope.Tools != nil:
		return envelope.Tools, nil
	default:
		return nil, fmt.Errorf("%w: no tools in response", ErrInvalidJSON)
	}
}

// firstEventData returns the payload of the first SSE event carrying data.
// Multi-line data fields are joined with newlines.
func firstEventData(body []byte) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var data []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if len(data) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event stream: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: event stream carried no data", ErrInvalidJSON)
	}
	return []byte(strings.Join(data, "\n")), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
