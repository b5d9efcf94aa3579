package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ca-srg/chatbridge/internal/messaging"
	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

var (
	sendPlatform          string
	sendMessage           string
	sendChannel           string
	sendThreadID          string
	sendHeader            string
	sendUsername          string
	sendAvatarURL         string
	sendTTS               bool
	sendTranslateMarkdown bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message to Slack or Discord",
	Long: `
Send a message to a Slack channel or through the configured Discord webhook.

Slack needs SLACK_BOT_TOKEN and a channel; Discord sends through
DISCORD_WEBHOOK_URL and ignores the channel flag.

Examples:
  chatbridge send --platform slack --channel C1234567890 --message "Deploy finished"
  chatbridge send --platform slack --channel C1234567890 --thread-id 1700000000.000100 --message "Replying in thread"
  chatbridge send --platform slack --channel C1234567890 --header "Deploy report" --message "All services healthy"
  chatbridge send --platform discord --message "**Deploy finished**"
  chatbridge send --platform discord --message "# Release notes" --translate-markdown
`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendPlatform, "platform", "p", "", "Target platform: slack or discord (required)")
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "Message text to send (required)")
	sendCmd.Flags().StringVarP(&sendChannel, "channel", "c", "", "Slack channel ID (ignored for Discord webhooks)")
	sendCmd.Flags().StringVar(&sendThreadID, "thread-id", "", "Thread to reply to (Slack message timestamp)")
	sendCmd.Flags().StringVar(&sendHeader, "header", "", "Render the message under a Block Kit header (Slack only)")
	sendCmd.Flags().StringVar(&sendUsername, "username", "", "Override the webhook bot username (Discord only)")
	sendCmd.Flags().StringVar(&sendAvatarURL, "avatar-url", "", "Override the webhook bot avatar URL (Discord only)")
	sendCmd.Flags().BoolVar(&sendTTS, "tts", false, "Send as text-to-speech (Discord only)")
	sendCmd.Flags().BoolVar(&sendTranslateMarkdown, "translate-markdown", false, "Rewrite common markdown into the target platform's dialect before sending")

	_ = sendCmd.MarkFlagRequired("platform")
	_ = sendCmd.MarkFlagRequired("message")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeCLI, types.ToolSend)

	message := sendMessage
	if sendTranslateMarkdown {
		message = messaging.TranslateMarkdown(sendPlatform, message)
	}

	req := &types.SendRequest{
		Platform:  sendPlatform,
		Message:   message,
		Channel:   sendChannel,
		ThreadID:  sendThreadID,
		Username:  sendUsername,
		AvatarURL: sendAvatarURL,
		TTS:       sendTTS,
	}
	if sendHeader != "" {
		blocks, err := messaging.NewBlockBuilder().
			Header(sendHeader).
			Section(message).
			JSON()
		if err != nil {
			return err
		}
		req.Blocks = blocks
	}

	env := dispatcher.Send(ctx, req)
	return emitEnvelope(cmd, types.ToolSend, env)
}
