package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

var (
	reactChannel   string
	reactMessageID string
	reactEmoji     string
)

var reactCmd = &cobra.Command{
	Use:   "react",
	Short: "Add an emoji reaction to a Slack message",
	Long: `
Add an emoji reaction to a Slack message. The emoji name is accepted with
or without colons.

Requires SLACK_BOT_TOKEN. Discord webhooks cannot add reactions, so this
command is Slack only.

Examples:
  chatbridge react --channel C1234567890 --message-id 1700000000.000100 --emoji thumbsup
  chatbridge react --channel C1234567890 --message-id 1700000000.000100 --emoji :rocket:
`,
	RunE: runReact,
}

func init() {
	reactCmd.Flags().StringVarP(&reactChannel, "channel", "c", "", "Slack channel ID containing the message (required)")
	reactCmd.Flags().StringVar(&reactMessageID, "message-id", "", "Timestamp of the message to react to (required)")
	reactCmd.Flags().StringVarP(&reactEmoji, "emoji", "e", "", "Emoji name, with or without colons (required)")

	_ = reactCmd.MarkFlagRequired("channel")
	_ = reactCmd.MarkFlagRequired("message-id")
	_ = reactCmd.MarkFlagRequired("emoji")
}

func runReact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeCLI, types.ToolReact)

	env := dispatcher.React(ctx, &types.ReactRequest{
		Channel:   reactChannel,
		MessageID: reactMessageID,
		Emoji:     reactEmoji,
	})
	return emitEnvelope(cmd, types.ToolReact, env)
}
