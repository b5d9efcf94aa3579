package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

const serverVersion = "1.0.0"

// ServerWrapper runs the SDK MCP server over HTTP with the messaging tools
// registered.
type ServerWrapper struct {
	sdkServer  *mcp.Server
	httpServer *http.Server

	config   *types.Config
	handlers *ToolHandlers

	ipAuthMiddleware *IPAuthMiddleware

	toolNames []string

	logger       *log.Logger
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	mutex        sync.RWMutex
	isRunning    bool

	requestSeq uint64
}

// NewServerWrapper creates the server and registers every messaging tool.
func NewServerWrapper(config *types.Config, handlers *ToolHandlers) (*ServerWrapper, error) {
	if config == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if handlers == nil {
		return nil, fmt.Errorf("tool handlers cannot be nil")
	}

	wrapper := &ServerWrapper{
		config:       config,
		handlers:     handlers,
		logger:       log.New(os.Stdout, "[MCPServer] ", log.LstdFlags),
		shutdownChan: make(chan struct{}),
	}

	impl := &mcp.Implementation{
		Name:    "chatbridge-mcp-server",
		Version: serverVersion,
	}
	wrapper.sdkServer = mcp.NewServer(impl, nil)

	if err := wrapper.registerTools(); err != nil {
		return nil, err
	}

	return wrapper, nil
}

// registerTools adds the six messaging tools to the SDK server, applying the
// configured name prefix.
func (sw *ServerWrapper) registerTools() error {
	for _, def := range toolDefinitions() {
		handler := sw.handlers.handlerFor(def.name)
		if handler == nil {
			return fmt.Errorf("no handler for tool %s", def.name)
		}

		tool := buildSDKTool(def, sw.config.MCPToolPrefix)
		sw.sdkServer.AddTool(tool, handler)
		sw.toolNames = append(sw.toolNames, tool.Name)
	}

	sw.logger.Printf("Registered %d tools: %s", len(sw.toolNames), strings.Join(sw.toolNames, ", "))
	return nil
}

// SetIPAuthMiddleware installs the IP allowlist middleware applied on Start.
func (sw *ServerWrapper) SetIPAuthMiddleware(middleware *IPAuthMiddleware) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	sw.ipAuthMiddleware = middleware
}

// SetLogger replaces the server logger.
func (sw *ServerWrapper) SetLogger(logger *log.Logger) {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if logger != nil {
		sw.logger = logger
	}
}

// RegisteredToolNames returns the tool names as registered, prefix included.
func (sw *ServerWrapper) RegisteredToolNames() []string {
	names := make([]string, len(sw.toolNames))
	copy(names, sw.toolNames)
	return names
}

// GetSDKServer returns the underlying SDK server instance.
func (sw *ServerWrapper) GetSDKServer() *mcp.Server {
	return sw.sdkServer
}

// GetServerAddress returns the host:port the server binds to.
func (sw *ServerWrapper) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", sw.config.MCPServerHost, sw.config.MCPServerPort)
}

// Handler builds the full HTTP handler chain: MCP transport, health
// endpoint, IP allowlist, access logging.
func (sw *ServerWrapper) Handler() http.Handler {
	mux := http.NewServeMux()

	getServer := func(r *http.Request) *mcp.Server { return sw.sdkServer }
	mux.Handle("/", mcp.NewStreamableHTTPHandler(getServer, nil))
	mux.HandleFunc("/health", sw.handleHealthCheck)

	var handler http.Handler = mux
	if sw.ipAuthMiddleware != nil {
		handler = sw.ipAuthMiddleware.Middleware(handler)
	}
	if sw.config.MCPServerEnableAccessLog {
		handler = sw.loggingMiddleware(handler)
	}

	return handler
}

// Start binds the HTTP server and begins serving MCP requests.
func (sw *ServerWrapper) Start() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if sw.isRunning {
		return fmt.Errorf("server is already running")
	}

	addr := sw.GetServerAddress()
	sw.logger.Printf("Starting MCP server on %s", addr)
	if sw.ipAuthMiddleware != nil {
		sw.logger.Printf("IP authentication middleware enabled")
	}

	sw.httpServer = &http.Server{
		Addr:           addr,
		Handler:        sw.Handler(),
		ReadTimeout:    sw.config.MCPServerReadTimeout,
		WriteTimeout:   sw.config.MCPServerWriteTimeout,
		IdleTimeout:    sw.config.MCPServerIdleTimeout,
		MaxHeaderBytes: sw.config.MCPServerMaxHeaderBytes,
	}

	sw.wg.Add(1)
	go func() {
		defer sw.wg.Done()
		if err := sw.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sw.logger.Printf("HTTP server error: %v", err)
		}
	}()

	sw.isRunning = true
	sw.logger.Printf("MCP server started successfully")
	return nil
}

// Stop shuts the server down, draining in-flight requests up to the
// configured timeout before forcing the listener closed.
func (sw *ServerWrapper) Stop() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if !sw.isRunning {
		return fmt.Errorf("server is not running")
	}

	sw.logger.Printf("Stopping MCP server...")

	if sw.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), sw.config.MCPServerShutdownTimeout)
		defer cancel()

		if err := sw.httpServer.Shutdown(shutdownCtx); err != nil {
			sw.logger.Printf("Graceful shutdown failed: %v, forcing immediate shutdown", err)
			if err := sw.httpServer.Close(); err != nil {
				sw.logger.Printf("Failed to close HTTP server: %v", err)
			}
		}
	}

	close(sw.shutdownChan)
	sw.wg.Wait()

	sw.isRunning = false
	sw.logger.Printf("MCP server stopped successfully")
	return nil
}

// IsRunning reports whether the server is currently serving.
func (sw *ServerWrapper) IsRunning() bool {
	sw.mutex.RLock()
	defer sw.mutex.RUnlock()
	return sw.isRunning
}

// WaitForShutdown blocks until the server has been stopped.
func (sw *ServerWrapper) WaitForShutdown() {
	<-sw.shutdownChan
}

// handleHealthCheck reports server status, the registered tools, and
// cumulative invocation counts.
func (sw *ServerWrapper) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	sw.mutex.RLock()
	running := sw.isRunning
	sw.mutex.RUnlock()

	status := map[string]interface{}{
		"status":     "healthy",
		"version":    serverVersion,
		"timestamp":  time.Now().UTC(),
		"running":    running,
		"address":    sw.GetServerAddress(),
		"tool_count": len(sw.toolNames),
		"tools":      sw.RegisteredToolNames(),
	}

	if stats := metrics.GetStats(); stats != nil {
		status["invocations"] = stats
	}
	if toolStats := metrics.GetToolStats(); toolStats != nil {
		status["tool_invocations"] = toolStats
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		sw.logger.Printf("Failed to encode health response: %v", err)
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += int64(n)
	return n, err
}

func (sw *ServerWrapper) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := fmt.Sprintf("%d-%s", atomic.AddUint64(&sw.requestSeq, 1), uuid.New().String()[:8])
		lrw := newLoggingResponseWriter(w)
		next.ServeHTTP(lrw, r)

		forwarded := strings.Join(r.Header.Values("X-Forwarded-For"), ",")
		clientIP := extractClientIPFromRequest(r)
		sw.logger.Printf(
			"Request[%s]: %s %s status=%d bytes=%d duration=%s remote=%s client_ip=%s forwarded=%s user_agent=%q",
			requestID,
			r.Method,
			r.URL.Path,
			lrw.status,
			lrw.size,
			time.Since(start),
			r.RemoteAddr,
			clientIP,
			forwarded,
			r.Header.Get("User-Agent"),
		)
	})
}
