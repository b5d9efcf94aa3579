package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appconfig "github.com/ca-srg/chatbridge/internal/config"
	"github.com/ca-srg/chatbridge/internal/messaging"
)

var rootCmd = &cobra.Command{
	Use:   "chatbridge",
	Short: "chatbridge - messaging bridge for Slack and Discord",
	Long: `chatbridge lets automation agents send and read messages on Slack and
Discord through one uniform tool surface. Slack is driven through the Web API
with a bot token; Discord is driven through an incoming webhook.

The same six operations are available as an MCP server (chatbridge mcp-server)
and as one-shot CLI commands that print the tool response envelope as JSON.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(mcpServerCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(reactCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (*appconfig.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newDispatcher(ctx context.Context, cfg *appconfig.Config) (*messaging.Dispatcher, error) {
	dispatcher, err := messaging.NewDispatcherFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	return dispatcher, nil
}

// emitEnvelope prints a tool response envelope as indented JSON and turns
// an envelope failure into a non-zero exit.
func emitEnvelope(cmd *cobra.Command, tool string, env messaging.Envelope) error {
	jsonOutput, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Println(string(jsonOutput))

	if messaging.EnvelopeFailed(env) {
		// The envelope already carries the details; skip the usage dump.
		cmd.SilenceUsage = true
		return fmt.Errorf("%s failed", tool)
	}
	return nil
}
