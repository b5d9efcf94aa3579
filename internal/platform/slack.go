package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/ca-srg/chatbridge/internal/types"
)

// SlackAPI defines the subset of the Slack Web API used by the adapter.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	GetFileInfoContext(ctx context.Context, fileID string, count, page int) (*slack.File, []slack.Comment, *slack.Paging, error)
}

// SlackAdapter drives Slack through a bot token. Every operation is a
// single Web API call; the adapter keeps no state between calls.
type SlackAdapter struct {
	api     SlackAPI
	timeout time.Duration
}

var _ MessagingPlatform = (*SlackAdapter)(nil)

// SlackOption configures SlackAdapter.
type SlackOption func(*SlackAdapter)

// WithSlackAPI substitutes the API client, for tests.
func WithSlackAPI(api SlackAPI) SlackOption {
	return func(a *SlackAdapter) {
		a.api = api
	}
}

// WithSlackTimeout overrides the per-request HTTP deadline.
func WithSlackTimeout(d time.Duration) SlackOption {
	return func(a *SlackAdapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewSlackAdapter constructs an adapter around a bot token (xoxb-...).
func NewSlackAdapter(token string, opts ...SlackOption) *SlackAdapter {
	adapter := &SlackAdapter{
		timeout: DefaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(adapter)
	}
	if adapter.api == nil {
		var clientOpts []slack.Option
		clientOpts = append(clientOpts, slack.OptionHTTPClient(&http.Client{Timeout: adapter.timeout}))
		adapter.api = slack.New(token, clientOpts...)
	}
	return adapter
}

// Name returns the platform identifier.
func (a *SlackAdapter) Name() string {
	return types.PlatformSlack
}

// SendMessage posts text with chat.postMessage. Thread timestamps,
// opaque Block Kit payloads, and unfurl opt-outs are forwarded when set.
func (a *SlackAdapter) SendMessage(ctx context.Context, channel, text, threadID string, opts *types.SendOptions) types.SendResult {
	msgOpts := []slack.MsgOption{slack.MsgOptionText(text, false)}

	if threadID != "" {
		msgOpts = append(msgOpts, slack.MsgOptionTS(threadID))
	}
	if opts != nil {
		if len(opts.Blocks) > 0 {
			var blocks slack.Blocks
			if err := json.Unmarshal(opts.Blocks, &blocks); err != nil {
				return types.SendResult{Success: false, Error: "invalid blocks payload: " + err.Error()}
			}
			msgOpts = append(msgOpts, slack.MsgOptionBlocks(blocks.BlockSet...))
		}
		if len(opts.Attachments) > 0 {
			var attachments []slack.Attachment
			if err := json.Unmarshal(opts.Attachments, &attachments); err != nil {
				return types.SendResult{Success: false, Error: "invalid attachments payload: " + err.Error()}
			}
			msgOpts = append(msgOpts, slack.MsgOptionAttachments(attachments...))
		}
		if opts.UnfurlLinks != nil && !*opts.UnfurlLinks {
			msgOpts = append(msgOpts, slack.MsgOptionDisableLinkUnfurl())
		}
		if opts.UnfurlMedia != nil && !*opts.UnfurlMedia {
			msgOpts = append(msgOpts, slack.MsgOptionDisableMediaUnfurl())
		}
	}

	respChannel, ts, err := a.api.PostMessageContext(ctx, channel, msgOpts...)
	if err != nil {
		return types.SendResult{Success: false, Error: err.Error()}
	}

	return types.SendResult{
		Success:   true,
		MessageID: ts,
		ThreadID:  threadID,
		Channel:   respChannel,
	}
}

// GetMessages fetches channel history, newest first. System-subtype
// entries are filtered out; bot_message is kept.
func (a *SlackAdapter) GetMessages(ctx context.Context, channel string, limit int, before string) ([]types.Message, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	params := &slack.GetConversationHistoryParameters{
		ChannelID: channel,
		Limit:     limit,
	}
	if before != "" {
		params.Latest = before
	}

	history, err := a.api.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return nil, err
	}

	messages := make([]types.Message, 0, len(history.Messages))
	for _, msg := range history.Messages {
		if msg.SubType != "" && msg.SubType != "bot_message" {
			continue
		}
		messages = append(messages, convertSlackMessage(channel, msg))
	}
	return messages, nil
}

// convertSlackMessage maps a Slack history entry onto the shared model.
func convertSlackMessage(channel string, msg slack.Message) types.Message {
	author := msg.User
	if author == "" {
		author = msg.BotID
	}
	if author == "" {
		author = "unknown"
	}

	reactions := make([]types.Reaction, 0, len(msg.Reactions))
	for _, r := range msg.Reactions {
		reactions = append(reactions, types.Reaction{Name: r.Name, Count: r.Count})
	}
	files := make([]string, 0, len(msg.Files))
	for _, f := range msg.Files {
		files = append(files, f.Name)
	}

	return types.Message{
		ID:        msg.Timestamp,
		Channel:   channel,
		Content:   msg.Text,
		Author:    author,
		Timestamp: slackTsToISO(msg.Timestamp),
		ThreadID:  msg.ThreadTimestamp,
		Metadata: types.MessageMetadata{
			Reactions:  reactions,
			ReplyCount: msg.ReplyCount,
			Files:      files,
		},
	}
}

// slackTsToISO converts a Slack fractional-epoch timestamp ("1700000000.123456")
// to an ISO 8601 string in UTC. Malformed values pass through unchanged.
func slackTsToISO(ts string) string {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return ts
	}
	var micros int64
	if fracPart != "" {
		padded := (fracPart + "000000")[:6]
		micros, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return ts
		}
	}
	return time.Unix(sec, micros*1000).UTC().Format("2006-01-02T15:04:05.000000")
}

// AddReaction adds an emoji reaction with reactions.add. Reacting twice
// with the same emoji is reported as success.
func (a *SlackAdapter) AddReaction(ctx context.Context, channel, messageID, emoji string) types.ReactionResult {
	name := strings.Trim(emoji, ":")

	err := a.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channel, messageID))
	if err != nil {
		if strings.Contains(err.Error(), "already_reacted") {
			return types.ReactionResult{Success: true, Note: "Already reacted"}
		}
		return types.ReactionResult{Success: false, Error: err.Error()}
	}
	return types.ReactionResult{Success: true}
}

// UploadFile uploads content through the external upload flow
// (files.getUploadURLExternal + completeUploadExternal). The permalink
// is resolved afterwards; its absence is tolerated.
func (a *SlackAdapter) UploadFile(ctx context.Context, channel, filename string, content []byte, title, comment string) types.FileUploadResult {
	params := slack.UploadFileV2Parameters{
		Channel:        channel,
		Filename:       filename,
		FileSize:       len(content),
		Content:        string(content),
		Title:          title,
		InitialComment: comment,
	}

	summary, err := a.api.UploadFileV2Context(ctx, params)
	if err != nil {
		return types.FileUploadResult{Success: false, Error: err.Error()}
	}

	result := types.FileUploadResult{Success: true, FileID: summary.ID}
	if file, _, _, infoErr := a.api.GetFileInfoContext(ctx, summary.ID, 0, 0); infoErr == nil && file != nil {
		result.URL = file.Permalink
	}
	return result
}

// ListChannels enumerates non-archived channels with conversations.list.
func (a *SlackAdapter) ListChannels(ctx context.Context, includePrivate bool, limit int) ([]types.Channel, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	channelTypes := []string{"public_channel"}
	if includePrivate {
		channelTypes = append(channelTypes, "private_channel")
	}

	conversations, _, err := a.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
		Types:           channelTypes,
		Limit:           limit,
		ExcludeArchived: true,
	})
	if err != nil {
		return nil, err
	}

	channels := make([]types.Channel, 0, len(conversations))
	for _, ch := range conversations {
		channels = append(channels, types.Channel{
			ID:          ch.ID,
			Name:        ch.Name,
			IsPrivate:   ch.IsPrivate,
			MemberCount: ch.NumMembers,
		})
	}
	return channels, nil
}

// ValidateCredentials resolves the token identity with auth.test.
func (a *SlackAdapter) ValidateCredentials(ctx context.Context) types.ValidationResult {
	resp, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return types.ValidationResult{Valid: false, Error: err.Error()}
	}
	return types.ValidationResult{
		Valid:  true,
		User:   resp.User,
		UserID: resp.UserID,
		Team:   resp.Team,
		TeamID: resp.TeamID,
	}
}
