package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ca-srg/chatbridge/internal/mcpserver"
	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/observability"
)

var (
	// Command line flags for MCP server
	mcpServerHost      string
	mcpServerPort      int
	mcpAllowedIPs      []string
	mcpEnableIPAuth    bool
	mcpEnableAccessLog bool
	mcpToolPrefix      string
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start MCP (Model Context Protocol) server for messaging tools",
	Long: `
Start an MCP server that exposes the chatbridge messaging tools to
MCP-compatible clients like Claude Desktop, IDEs, and other agents.

The server registers six tools: messaging_send, messaging_read,
messaging_react, messaging_upload, messaging_list_channels, and
messaging_validate. Slack operations need SLACK_BOT_TOKEN; Discord
operations need DISCORD_WEBHOOK_URL.

Configuration is loaded from environment variables (see README for details).

Examples:
  chatbridge mcp-server                                  # Start server with default settings
  chatbridge mcp-server --port 9000                      # Use custom port
  chatbridge mcp-server --host 0.0.0.0 --enable-ip-auth=false  # Allow all IPs (not recommended)
  chatbridge mcp-server --allowed-ips "192.168.1.0/24"   # Allow specific IP range
  chatbridge mcp-server --tool-prefix team_              # Register tools as team_messaging_send etc.
`,
	RunE: runMCPServer,
}

func init() {
	mcpServerCmd.Flags().StringVar(&mcpServerHost, "host", "localhost", "Server host address")
	mcpServerCmd.Flags().IntVar(&mcpServerPort, "port", 8080, "Server port")
	mcpServerCmd.Flags().StringSliceVar(&mcpAllowedIPs, "allowed-ips", []string{"127.0.0.1", "::1"}, "Comma-separated list of allowed IP addresses/ranges")
	mcpServerCmd.Flags().BoolVar(&mcpEnableIPAuth, "enable-ip-auth", true, "Enable IP-based authentication")
	mcpServerCmd.Flags().BoolVar(&mcpEnableAccessLog, "enable-access-log", true, "Enable HTTP access logging")
	mcpServerCmd.Flags().StringVar(&mcpToolPrefix, "tool-prefix", "", "Prefix prepended to registered tool names")
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override configuration with command line flags if provided
	if cmd.Flags().Changed("host") {
		cfg.MCPServerHost = mcpServerHost
	}
	if cmd.Flags().Changed("port") {
		cfg.MCPServerPort = mcpServerPort
	}
	if cmd.Flags().Changed("allowed-ips") {
		cfg.MCPAllowedIPs = mcpAllowedIPs
	}
	if cmd.Flags().Changed("enable-ip-auth") {
		cfg.MCPIPAuthEnabled = mcpEnableIPAuth
	}
	if cmd.Flags().Changed("enable-access-log") {
		cfg.MCPServerEnableAccessLog = mcpEnableAccessLog
	}
	if cmd.Flags().Changed("tool-prefix") {
		cfg.MCPToolPrefix = mcpToolPrefix
	}

	logger := log.New(os.Stdout, "[MCP Server] ", log.LstdFlags)

	// Telemetry first so the tool instruments bind to the real providers.
	shutdownTelemetry, err := observability.Init(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Printf("Telemetry shutdown error: %v", err)
		}
	}()

	// Invocation stats are best effort: the server still serves when the
	// local stats store cannot be opened.
	if err := metrics.Init(); err != nil {
		logger.Printf("Warning: invocation stats disabled: %v", err)
	} else if err := metrics.InitOTelMetrics(); err != nil {
		logger.Printf("Warning: failed to register invocation gauges: %v", err)
	}
	defer func() {
		if err := metrics.Close(); err != nil {
			logger.Printf("Failed to close stats store: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	handlers, err := mcpserver.NewToolHandlers(dispatcher, logger)
	if err != nil {
		return fmt.Errorf("failed to create tool handlers: %w", err)
	}

	server, err := mcpserver.NewServerWrapper(cfg, handlers)
	if err != nil {
		return fmt.Errorf("failed to create server wrapper: %w", err)
	}
	server.SetLogger(logger)

	if cfg.MCPIPAuthEnabled {
		ipAuth, err := mcpserver.NewIPAuthMiddleware(cfg.MCPAllowedIPs, cfg.MCPIPAuthEnableLogging)
		if err != nil {
			return fmt.Errorf("failed to create IP authentication middleware: %w", err)
		}
		server.SetIPAuthMiddleware(ipAuth)
		logger.Printf("IP authentication enabled for IPs: %v", cfg.MCPAllowedIPs)
	} else {
		logger.Printf("WARNING: IP authentication disabled, server accepts any client")
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Printf("Received shutdown signal, stopping server...")
		cancel()

		// Give the server a moment to finish current requests
		time.Sleep(1 * time.Second)

		if err := server.Stop(); err != nil {
			logger.Printf("Error during server shutdown: %v", err)
		}
	}()

	logger.Printf("Starting MCP server on %s", server.GetServerAddress())
	logger.Printf("Available tools: %s", strings.Join(server.RegisteredToolNames(), ", "))

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	logger.Printf("MCP server stopped successfully")
	return nil
}
