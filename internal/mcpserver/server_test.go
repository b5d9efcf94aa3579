package mcpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ca-srg/chatbridge/internal/credentials"
	"github.com/ca-srg/chatbridge/internal/messaging"
	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

func testServerConfig() *types.Config {
	return &types.Config{
		MCPServerHost:            "127.0.0.1",
		MCPServerPort:            8080,
		MCPServerReadTimeout:     30 * time.Second,
		MCPServerWriteTimeout:    30 * time.Second,
		MCPServerIdleTimeout:     120 * time.Second,
		MCPServerShutdownTimeout: 5 * time.Second,
		MCPServerMaxHeaderBytes:  1 << 20,
	}
}

func newTestServerWrapper(t *testing.T, config *types.Config) *ServerWrapper {
	t.Helper()

	dispatcher := messaging.NewDispatcher(credentials.StaticSource{},
		messaging.WithLogger(log.New(io.Discard, "", 0)),
	)
	handlers, err := NewToolHandlers(dispatcher, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Failed to create tool handlers: %v", err)
	}

	wrapper, err := NewServerWrapper(config, handlers)
	if err != nil {
		t.Fatalf("Failed to create server wrapper: %v", err)
	}
	wrapper.SetLogger(log.New(io.Discard, "", 0))
	return wrapper
}

func TestNewServerWrapperRegistersAllTools(t *testing.T) {
	wrapper := newTestServerWrapper(t, testServerConfig())

	names := wrapper.RegisteredToolNames()
	if !reflect.DeepEqual(names, types.Tools()) {
		t.Errorf("Registered tools %v do not match canonical tool list %v", names, types.Tools())
	}
	if wrapper.GetSDKServer() == nil {
		t.Errorf("Expected SDK server instance")
	}
}

func TestNewServerWrapperAppliesToolPrefix(t *testing.T) {
	config := testServerConfig()
	config.MCPToolPrefix = "bridge_"
	wrapper := newTestServerWrapper(t, config)

	names := wrapper.RegisteredToolNames()
	if len(names) != len(types.Tools()) {
		t.Fatalf("Expected %d tools, got %d", len(types.Tools()), len(names))
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "bridge_") {
			t.Errorf("Tool %s missing prefix", name)
		}
	}
}

func TestNewServerWrapperValidatesArguments(t *testing.T) {
	if _, err := NewServerWrapper(nil, &ToolHandlers{}); err == nil {
		t.Errorf("Expected error for nil config")
	}
	if _, err := NewServerWrapper(testServerConfig(), nil); err == nil {
		t.Errorf("Expected error for nil handlers")
	}
}

func TestHealthEndpoint(t *testing.T) {
	setupMetricsStore(t)
	metrics.RecordInvocation(metrics.ModeMCP, types.ToolSend)

	wrapper := newTestServerWrapper(t, testServerConfig())

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	wrapper.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if payload["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %v", payload["status"])
	}
	if payload["tool_count"] != float64(len(types.Tools())) {
		t.Errorf("Expected tool_count %d, got %v", len(types.Tools()), payload["tool_count"])
	}
	tools, ok := payload["tools"].([]interface{})
	if !ok || len(tools) != len(types.Tools()) {
		t.Errorf("Expected %d tools, got %v", len(types.Tools()), payload["tools"])
	}

	invocations, ok := payload["invocations"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected invocation counts in health response, got %v", payload["invocations"])
	}
	if invocations["mcp"] != float64(1) {
		t.Errorf("Expected 1 mcp invocation, got %v", invocations["mcp"])
	}

	toolInvocations, ok := payload["tool_invocations"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected per-tool counts in health response, got %v", payload["tool_invocations"])
	}
	if toolInvocations[types.ToolSend] != float64(1) {
		t.Errorf("Expected 1 %s invocation, got %v", types.ToolSend, toolInvocations[types.ToolSend])
	}
}

func TestHandlerEnforcesIPAllowlist(t *testing.T) {
	wrapper := newTestServerWrapper(t, testServerConfig())

	middleware, err := NewIPAuthMiddleware([]string{"10.0.0.0/24"}, false)
	if err != nil {
		t.Fatalf("Failed to create middleware: %v", err)
	}
	wrapper.SetIPAuthMiddleware(middleware)
	handler := wrapper.Handler()

	denied := httptest.NewRequest("GET", "/health", nil)
	denied.RemoteAddr = "8.8.8.8:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, denied)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for denied IP, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Access denied") {
		t.Errorf("Expected denial message, got %q", rr.Body.String())
	}

	allowed := httptest.NewRequest("GET", "/health", nil)
	allowed.RemoteAddr = "10.0.0.5:12345"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, allowed)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 for allowed IP, got %d", rr.Code)
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	config := testServerConfig()
	config.MCPServerEnableAccessLog = true
	wrapper := newTestServerWrapper(t, config)

	var buf bytes.Buffer
	wrapper.SetLogger(log.New(&buf, "", 0))

	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	rr := httptest.NewRecorder()
	wrapper.Handler().ServeHTTP(rr, req)

	logLine := buf.String()
	if !strings.Contains(logLine, "Request[") {
		t.Errorf("Expected access log entry, got %q", logLine)
	}
	if !strings.Contains(logLine, "status=200") {
		t.Errorf("Expected status in access log, got %q", logLine)
	}
	if !strings.Contains(logLine, "client_ip=127.0.0.1") {
		t.Errorf("Expected client IP in access log, got %q", logLine)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	config := testServerConfig()
	// Port 0 binds an ephemeral port so parallel test runs do not collide.
	config.MCPServerPort = 0
	wrapper := newTestServerWrapper(t, config)

	if err := wrapper.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !wrapper.IsRunning() {
		t.Errorf("Expected server to report running")
	}
	if err := wrapper.Start(); err == nil {
		t.Errorf("Expected error starting an already running server")
	}

	if err := wrapper.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if wrapper.IsRunning() {
		t.Errorf("Expected server to report stopped")
	}
}

func TestStopWithoutStart(t *testing.T) {
	wrapper := newTestServerWrapper(t, testServerConfig())

	if err := wrapper.Stop(); err == nil {
		t.Errorf("Expected error stopping a server that is not running")
	}
}

func TestGetServerAddress(t *testing.T) {
	config := testServerConfig()
	config.MCPServerHost = "0.0.0.0"
	config.MCPServerPort = 9000
	wrapper := newTestServerWrapper(t, config)

	if got := wrapper.GetServerAddress(); got != "0.0.0.0:9000" {
		t.Errorf("GetServerAddress() = %q, want 0.0.0.0:9000", got)
	}
}
