package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

var (
	readChannel string
	readLimit   int
	readBefore  string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read recent messages from a Slack channel",
	Long: `
Read recent messages from a Slack channel, newest first.

Requires SLACK_BOT_TOKEN. Discord webhooks cannot read history, so this
command is Slack only.

Examples:
  chatbridge read --channel C1234567890
  chatbridge read --channel C1234567890 --limit 50
  chatbridge read --channel C1234567890 --before 1700000000.000100
`,
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVarP(&readChannel, "channel", "c", "", "Slack channel ID to read from (required)")
	readCmd.Flags().IntVarP(&readLimit, "limit", "l", 0, "Number of messages to fetch, 1-100 (0 uses the configured default)")
	readCmd.Flags().StringVar(&readBefore, "before", "", "Only fetch messages older than this timestamp")

	_ = readCmd.MarkFlagRequired("channel")
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeCLI, types.ToolRead)

	env := dispatcher.Read(ctx, &types.ReadRequest{
		Channel: readChannel,
		Limit:   readLimit,
		Before:  readBefore,
	})
	return emitEnvelope(cmd, types.ToolRead, env)
}
