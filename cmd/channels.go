package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

var (
	channelsIncludePrivate bool
	channelsLimit          int
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List Slack channels visible to the bot",
	Long: `
List the Slack channels the bot can see, with member counts and topics.

Requires SLACK_BOT_TOKEN. Private channels are only listed when the bot
is a member and --include-private is set.

Examples:
  chatbridge channels
  chatbridge channels --include-private
  chatbridge channels --limit 500
`,
	RunE: runChannels,
}

func init() {
	channelsCmd.Flags().BoolVar(&channelsIncludePrivate, "include-private", false, "Include private channels the bot belongs to")
	channelsCmd.Flags().IntVarP(&channelsLimit, "limit", "l", 0, "Number of channels to fetch, 1-1000 (0 uses the default of 100)")
}

func runChannels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeCLI, types.ToolListChannels)

	env := dispatcher.ListChannels(ctx, &types.ChannelsRequest{
		IncludePrivate: channelsIncludePrivate,
		Limit:          channelsLimit,
	})
	return emitEnvelope(cmd, types.ToolListChannels, env)
}
