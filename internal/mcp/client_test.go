package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestListTools_JSONRPCEnvelope(t *testing.T) {
	var gotMethod, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		gotMethod, _ = req["method"].(string)
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"jsonrpc":"2.0","id":"1","result":{"tools":[
			{"name":"search","description":"Search the web","inputSchema":{"type":"object"}},
			{"name":"weather","description":"Current weather"}
		]}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, map[string]string{"Authorization": "Bearer t0k"})
	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	if gotMethod != "tools/list" {
		t.Errorf("Expected method tools/list, got %q", gotMethod)
	}
	if gotAuth != "Bearer t0k" {
		t.Errorf("Expected configured header to be sent, got %q", gotAuth)
	}
	if len(tools) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(tools))
	}
	if tools[0].Name != "search" || tools[0].Description != "Search the web" {
		t.Errorf("Unexpected first tool: %+v", tools[0])
	}
	if tools[1].Name != "weather" {
		t.Errorf("Expected server order to be kept, got %+v", tools[1])
	}
}

func TestListTools_AlternateShapes(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"bare array", "application/json", `[{"name":"a","description":"A"}]`, 1},
		{"tools object", "application/json", `{"tools":[{"name":"a","description":"A"},{"name":"b","description":"B"}]}`, 2},
		{"event stream", "text/event-stream", "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":\"1\",\"result\":{\"tools\":[{\"name\":\"a\",\"description\":\"A\"}]}}\n\n", 1},
		{"empty result", "application/json", `{"jsonrpc":"2.0","id":"1","result":{"tools":[]}}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			tools, err := NewClient(server.URL, nil).ListTools(context.Background())
			if err != nil {
				t.Fatalf("ListTools failed: %v", err)
			}
			if len(tools) != tt.want {
				t.Errorf("Expected %d tools, got %d", tt.want, len(tools))
			}
		})
	}
}

func TestListTools_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `boom`, ErrUpstreamStatus},
		{"not json", http.StatusOK, `<html>nope</html>`, ErrInvalidJSON},
		{"no tools member", http.StatusOK, `{"jsonrpc":"2.0","id":"1"}`, ErrInvalidJSON},
		{"json-rpc error", http.StatusOK, `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"method not found"}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL, nil).ListTools(context.Background())
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestListTools_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if _, err := NewClient(url, nil).ListTools(context.Background()); err == nil {
		t.Error("Expected error for unreachable tool server")
	}
}

func TestCallTool_SendsNameAndParams(t *testing.T) {
	var calls int32
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":[{"type":"text","text":"meow"}],"uiResource":{"uri":"ui://cats"}}`)
	}))
	defer server.Close()

	result, err := NewClient(server.URL, nil).CallTool(context.Background(), "search", map[string]interface{}{"q": "cats"})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected exactly 1 call, got %d", n)
	}
	if got["name"] != "search" {
		t.Errorf("Expected name search, got %v", got["name"])
	}
	params, ok := got["params"].(map[string]interface{})
	if !ok || params["q"] != "cats" {
		t.Errorf("Expected params {q: cats}, got %v", got["params"])
	}
	want := `{"content":[{"type":"text","text":"meow"}],"uiResource":{"uri":"ui://cats"}}`
	if string(result) != want {
		t.Errorf("Expected body to be forwarded verbatim\nwant: %s\ngot:  %s", want, result)
	}
}

func TestCallTool_NilParamsBecomeEmptyObject(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, nil).CallTool(context.Background(), "noop", nil); err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if raw != `{"name":"noop","params":{}}` {
		t.Errorf("Unexpected request body: %s", raw)
	}
}

func TestCallTool_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "definitely not json")
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil).CallTool(context.Background(), "search", nil)
	if !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("Expected ErrInvalidJSON, got %v", err)
	}
	if !strings.Contains(err.Error(), "search") {
		t.Errorf("Expected error to name the tool, got %v", err)
	}
}

func TestCallTool_UpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error":"down"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil).CallTool(context.Background(), "search", nil)
	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatalf("Expected ErrUpstreamStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status code in error, got %v", err)
	}
}

func TestFirstEventData(t *testing.T) {
	body := "event: message\r\ndata: {\"a\":\r\ndata: 1}\r\n\r\ndata: {\"b\":2}\n\n"
	data, err := firstEventData([]byte(body))
	if err != nil {
		t.Fatalf("firstEventData failed: %v", err)
	}
	if string(data) != "{\"a\":\n1}" {
		t.Errorf("Unexpected data: %q", data)
	}

	if _, err := firstEventData([]byte("event: ping\n\n")); !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Expected ErrInvalidJSON for stream without data, got %v", err)
	}
}

// sessionServer behaves like a stateful streamable-HTTP server: everything
// except initialize needs the session id it handed out.
type methodLog struct {
	mu      sync.Mutex
	methods []string
}

func (l *methodLog) add(m string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.methods = append(l.methods, m)
}

func (l *methodLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.methods, ",")
}

func sessionServer(t *testing.T, methods *methodLog) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		method, _ := req["method"].(string)
		if method == "" {
			method = "call:" + fmt.Sprint(req["name"])
		}
		methods.add(method)

		switch {
		case method == "initialize":
			w.Header().Set(SessionHeader, "sess-42")
			w.Header().Set("Content-Type", "text/event-stream")
			io.WriteString(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":\"1\",\"result\":{\"protocolVersion\":\"2025-03-26\",\"capabilities\":{\"tools\":{}}}}\n\n")
		case r.Header.Get(SessionHeader) != "sess-42":
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"jsonrpc":"2.0","error":{"code":-32000,"message":"Bad Request: No valid session ID provided"}}`)
		case method == "notifications/initialized":
			if _, hasID := req["id"]; hasID {
				t.Errorf("Notification must not carry an id: %s", raw)
			}
			w.WriteHeader(http.StatusAccepted)
		case method == "tools/list":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"jsonrpc":"2.0","id":"2","result":{"tools":[{"name":"search","description":"Search the web"}]}}`)
		default:
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"ok":true}`)
		}
	}))
}

func TestListTools_SessionHandshake(t *testing.T) {
	methods := &methodLog{}
	server := sessionServer(t, methods)
	defer server.Close()

	client := NewClient(server.URL, nil)
	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "search" {
		t.Errorf("Unexpected tools: %+v", tools)
	}
	if client.SessionID() != "sess-42" {
		t.Errorf("Expected session id to be kept, got %q", client.SessionID())
	}

	if _, err := client.CallTool(context.Background(), "search", nil); err != nil {
		t.Fatalf("CallTool within session failed: %v", err)
	}

	want := "initialize,notifications/initialized,tools/list,call:search"
	if got := methods.String(); got != want {
		t.Errorf("Expected requests %s, got %s", want, got)
	}
}

func TestListTools_SessionRequired(t *testing.T) {
	server := sessionServer(t, &methodLog{})
	defer server.Close()

	// Without the handshake a session-enforcing server refuses the call
	_, err := NewClient(server.URL, nil).CallTool(context.Background(), "search", nil)
	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatalf("Expected ErrUpstreamStatus without a session, got %v", err)
	}
}

func TestListTools_WithoutHandshakeSupport(t *testing.T) {
	methods := &methodLog{}
	sessionHeaders := &methodLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		method, _ := req["method"].(string)
		methods.add(method)
		sessionHeaders.add(r.Header.Get(SessionHeader))

		if method != "tools/list" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, `[{"name":"a","description":"A"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(tools) != 1 {
		t.Errorf("Expected 1 tool, got %d", len(tools))
	}
	if got := methods.String(); got != "initialize,tools/list" {
		t.Errorf("Expected initialize then tools/list, got %s", got)
	}
	if got := sessionHeaders.String(); got != "," {
		t.Errorf("Expected no session header on either request, got %q", got)
	}
	if client.SessionID() != "" {
		t.Errorf("Expected no session, got %q", client.SessionID())
	}
}

func TestCallTool_BodyUnmodified(t *testing.T) {
	const body = "\n  {\"uiResource\": {\"uri\": \"ui://cats\"}}\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	defer server.Close()

	result, err := NewClient(server.URL, nil).CallTool(context.Background(), "search", nil)
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if string(result) != body {
		t.Errorf("Expected body byte for byte\nwant: %q\ngot:  %q", body, result)
	}
}
