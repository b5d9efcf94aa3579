// Package messaging routes tool invocations to platform adapters and
// shapes adapter results into response envelopes.
package messaging

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ca-srg/chatbridge/internal/credentials"
	"github.com/ca-srg/chatbridge/internal/platform"
	"github.com/ca-srg/chatbridge/internal/types"
)

// Envelope is a tool response. Keys follow the wire contract of the
// messaging tools; absent keys are omitted rather than set to zero values.
type Envelope = map[string]any

// Dispatcher validates tool requests, resolves credentials, and invokes
// the platform adapter named in the request.
type Dispatcher struct {
	creds       credentials.Source
	logger      *log.Logger
	readLimit   int
	httpTimeout time.Duration
	newSlack    func(token string) platform.MessagingPlatform
	newDiscord  func(webhookURL string) platform.MessagingPlatform
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for credential lookup warnings.
func WithLogger(logger *log.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithReadLimit sets the message count used when a read request does not
// specify a limit.
func WithReadLimit(limit int) DispatcherOption {
	return func(d *Dispatcher) {
		if limit > 0 {
			d.readLimit = limit
		}
	}
}

// WithHTTPTimeout sets the timeout for platform HTTP calls.
func WithHTTPTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.httpTimeout = timeout
		}
	}
}

// WithSlackFactory overrides how Slack adapters are built. Used by tests.
func WithSlackFactory(factory func(token string) platform.MessagingPlatform) DispatcherOption {
	return func(d *Dispatcher) {
		if factory != nil {
			d.newSlack = factory
		}
	}
}

// WithDiscordFactory overrides how Discord adapters are built. Used by tests.
func WithDiscordFactory(factory func(webhookURL string) platform.MessagingPlatform) DispatcherOption {
	return func(d *Dispatcher) {
		if factory != nil {
			d.newDiscord = factory
		}
	}
}

// NewDispatcher creates a Dispatcher reading credentials from creds.
func NewDispatcher(creds credentials.Source, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		creds:       creds,
		logger:      log.Default(),
		readLimit:   10,
		httpTimeout: platform.DefaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.newSlack == nil {
		d.newSlack = func(token string) platform.MessagingPlatform {
			return platform.NewSlackAdapter(token, platform.WithSlackTimeout(d.httpTimeout))
		}
	}
	if d.newDiscord == nil {
		d.newDiscord = func(webhookURL string) platform.MessagingPlatform {
			return platform.NewDiscordAdapter(webhookURL, platform.WithDiscordTimeout(d.httpTimeout))
		}
	}
	return d
}

// NewDispatcherFromConfig creates a Dispatcher wired from application
// configuration, including the configured credential source.
func NewDispatcherFromConfig(ctx context.Context, cfg *types.Config, opts ...DispatcherOption) (*Dispatcher, error) {
	source, err := credentials.NewSourceFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential source: %w", err)
	}
	base := []DispatcherOption{
		WithReadLimit(cfg.MessagingReadDefaultLimit),
		WithHTTPTimeout(cfg.MessagingHTTPTimeout),
	}
	return NewDispatcher(source, append(base, opts...)...), nil
}

// Send delivers a message to a Slack channel or a Discord webhook.
func (d *Dispatcher) Send(ctx context.Context, req *types.SendRequest) Envelope {
	p := NormalizePlatform(req.Platform)
	if p != types.PlatformSlack && p != types.PlatformDiscord {
		return Envelope{"error": unknownPlatformError(p)}
	}
	if strings.TrimSpace(req.Message) == "" {
		return Envelope{"error": "Message cannot be empty"}
	}
	if p == types.PlatformSlack {
		return guard("Slack error: ", func() Envelope { return d.sendSlack(ctx, req) })
	}
	return guard("Discord error: ", func() Envelope { return d.sendDiscord(ctx, req) })
}

func (d *Dispatcher) sendSlack(ctx context.Context, req *types.SendRequest) Envelope {
	token, envelope := d.resolveSecret(ctx, credentials.KeySlack)
	if envelope != nil {
		return envelope
	}
	if strings.TrimSpace(req.Channel) == "" {
		return Envelope{"error": "Channel is required for Slack messages"}
	}
	result := d.newSlack(token).SendMessage(ctx, req.Channel, req.Message, req.ThreadID, sendOptions(req))
	return sendEnvelope(types.PlatformSlack, result)
}

func (d *Dispatcher) sendDiscord(ctx context.Context, req *types.SendRequest) Envelope {
	webhookURL, envelope := d.resolveSecret(ctx, credentials.KeyDiscordWebhook)
	if envelope != nil {
		return envelope
	}
	result := d.newDiscord(webhookURL).SendMessage(ctx, req.Channel, req.Message, req.ThreadID, sendOptions(req))
	return sendEnvelope(types.PlatformDiscord, result)
}

func sendOptions(req *types.SendRequest) *types.SendOptions {
	return &types.SendOptions{
		Username:    req.Username,
		AvatarURL:   req.AvatarURL,
		TTS:         req.TTS,
		Embeds:      req.Embeds,
		Blocks:      req.Blocks,
		Attachments: req.Attachments,
		UnfurlLinks: req.UnfurlLinks,
		UnfurlMedia: req.UnfurlMedia,
	}
}

func sendEnvelope(p string, result types.SendResult) Envelope {
	if !result.Success {
		return Envelope{"success": false, "error": result.Error}
	}
	env := Envelope{"success": true, "platform": p}
	if result.MessageID != "" {
		env["message_id"] = result.MessageID
	}
	if result.Channel != "" {
		env["channel"] = result.Channel
	}
	if result.ThreadID != "" {
		env["thread_id"] = result.ThreadID
	}
	return env
}

// Read fetches recent messages from a Slack channel.
func (d *Dispatcher) Read(ctx context.Context, req *types.ReadRequest) Envelope {
	return guard("Failed to read messages: ", func() Envelope {
		token, envelope := d.resolveSecret(ctx, credentials.KeySlack)
		if envelope != nil {
			return envelope
		}
		if strings.TrimSpace(req.Channel) == "" {
			return Envelope{"error": "Channel ID is required"}
		}
		limit := req.Limit
		if limit == 0 {
			limit = d.readLimit
		}
		messages, err := d.newSlack(token).GetMessages(ctx, req.Channel, clampLimit(limit, 100), req.Before)
		if err != nil {
			return Envelope{"error": fmt.Sprintf("Failed to read messages: %v", err)}
		}
		items := make([]Envelope, 0, len(messages))
		for _, msg := range messages {
			items = append(items, Envelope{
				"id":          msg.ID,
				"content":     msg.Content,
				"author":      msg.Author,
				"timestamp":   msg.Timestamp,
				"thread_id":   msg.ThreadID,
				"reply_count": msg.Metadata.ReplyCount,
			})
		}
		return Envelope{
			"success":  true,
			"platform": types.PlatformSlack,
			"channel":  req.Channel,
			"messages": items,
			"count":    len(items),
		}
	})
}

// React adds an emoji reaction to a Slack message.
func (d *Dispatcher) React(ctx context.Context, req *types.ReactRequest) Envelope {
	return guard("Failed to add reaction: ", func() Envelope {
		token, envelope := d.resolveSecret(ctx, credentials.KeySlack)
		if envelope != nil {
			return envelope
		}
		if strings.TrimSpace(req.Channel) == "" {
			return Envelope{"error": "Channel ID is required"}
		}
		if strings.TrimSpace(req.MessageID) == "" {
			return Envelope{"error": "Message ID (timestamp) is required"}
		}
		if strings.TrimSpace(req.Emoji) == "" {
			return Envelope{"error": "Emoji name is required"}
		}
		result := d.newSlack(token).AddReaction(ctx, req.Channel, req.MessageID, req.Emoji)
		env := Envelope{
			"success":    result.Success,
			"platform":   types.PlatformSlack,
			"channel":    req.Channel,
			"message_id": req.MessageID,
			"emoji":      strings.Trim(req.Emoji, ":"),
		}
		if result.Error != "" {
			env["error"] = result.Error
		}
		if result.Note != "" {
			env["note"] = result.Note
		}
		return env
	})
}

// Upload sends a file to a Slack channel or a Discord webhook.
func (d *Dispatcher) Upload(ctx context.Context, req *types.UploadRequest) Envelope {
	p := NormalizePlatform(req.Platform)
	if p != types.PlatformSlack && p != types.PlatformDiscord {
		return Envelope{"error": unknownPlatformError(p)}
	}
	if strings.TrimSpace(req.Filename) == "" {
		return Envelope{"error": "Filename is required"}
	}
	if req.Content == "" {
		return Envelope{"error": "Content is required"}
	}
	if p == types.PlatformSlack {
		return guard("Slack upload error: ", func() Envelope { return d.uploadSlack(ctx, req) })
	}
	return guard("Discord upload error: ", func() Envelope { return d.uploadDiscord(ctx, req) })
}

func (d *Dispatcher) uploadSlack(ctx context.Context, req *types.UploadRequest) Envelope {
	token, envelope := d.resolveSecret(ctx, credentials.KeySlack)
	if envelope != nil {
		return envelope
	}
	if strings.TrimSpace(req.Channel) == "" {
		return Envelope{"error": "Channel is required for Slack file uploads"}
	}
	result := d.newSlack(token).UploadFile(ctx, req.Channel, req.Filename, []byte(req.Content), req.Title, req.Comment)
	return uploadEnvelope(types.PlatformSlack, result)
}

func (d *Dispatcher) uploadDiscord(ctx context.Context, req *types.UploadRequest) Envelope {
	webhookURL, envelope := d.resolveSecret(ctx, credentials.KeyDiscordWebhook)
	if envelope != nil {
		return envelope
	}
	result := d.newDiscord(webhookURL).UploadFile(ctx, req.Channel, req.Filename, []byte(req.Content), req.Title, req.Comment)
	return uploadEnvelope(types.PlatformDiscord, result)
}

func uploadEnvelope(p string, result types.FileUploadResult) Envelope {
	if !result.Success {
		return Envelope{"success": false, "error": result.Error}
	}
	env := Envelope{"success": true, "platform": p}
	if result.FileID != "" {
		env["file_id"] = result.FileID
	}
	if result.URL != "" {
		env["url"] = result.URL
	}
	return env
}

// ListChannels lists the Slack channels visible to the bot.
func (d *Dispatcher) ListChannels(ctx context.Context, req *types.ChannelsRequest) Envelope {
	return guard("Failed to list channels: ", func() Envelope {
		token, envelope := d.resolveSecret(ctx, credentials.KeySlack)
		if envelope != nil {
			return envelope
		}
		limit := req.Limit
		if limit == 0 {
			limit = 100
		}
		channels, err := d.newSlack(token).ListChannels(ctx, req.IncludePrivate, clampLimit(limit, 1000))
		if err != nil {
			return Envelope{"error": fmt.Sprintf("Failed to list channels: %v", err)}
		}
		items := make([]Envelope, 0, len(channels))
		for _, ch := range channels {
			items = append(items, Envelope{
				"id":           ch.ID,
				"name":         ch.Name,
				"is_private":   ch.IsPrivate,
				"member_count": ch.MemberCount,
			})
		}
		return Envelope{
			"success":  true,
			"platform": types.PlatformSlack,
			"channels": items,
			"count":    len(items),
		}
	})
}

// Validate checks whether the credential for a platform works, returning
// the identity it resolves to.
func (d *Dispatcher) Validate(ctx context.Context, req *types.ValidateRequest) Envelope {
	p := NormalizePlatform(req.Platform)
	if p != types.PlatformSlack && p != types.PlatformDiscord {
		return Envelope{"valid": false, "error": unknownPlatformError(p)}
	}
	return guardWith(func(r any) Envelope {
		return Envelope{"valid": false, "error": fmt.Sprintf("%v", r)}
	}, func() Envelope {
		key := credentials.KeySlack
		if p == types.PlatformDiscord {
			key = credentials.KeyDiscordWebhook
		}
		secret, envelope := d.resolveSecret(ctx, key)
		if envelope != nil {
			envelope["valid"] = false
			return envelope
		}
		var adapter platform.MessagingPlatform
		if p == types.PlatformSlack {
			adapter = d.newSlack(secret)
		} else {
			adapter = d.newDiscord(secret)
		}
		result := adapter.ValidateCredentials(ctx)
		env := Envelope{"platform": p, "valid": result.Valid}
		if result.Error != "" {
			env["error"] = result.Error
		}
		if result.User != "" {
			env["user"] = result.User
		}
		if result.UserID != "" {
			env["user_id"] = result.UserID
		}
		if result.Team != "" {
			env["team"] = result.Team
		}
		if result.TeamID != "" {
			env["team_id"] = result.TeamID
		}
		if result.Name != "" {
			env["name"] = result.Name
		}
		if result.ChannelID != "" {
			env["channel_id"] = result.ChannelID
		}
		if result.GuildID != "" {
			env["guild_id"] = result.GuildID
		}
		return env
	})
}

// resolveSecret looks up a credential and returns its value, or a ready
// failure envelope when the credential is absent. Lookup errors from the
// source are logged and treated as absent.
func (d *Dispatcher) resolveSecret(ctx context.Context, key string) (string, Envelope) {
	spec, ok := credentials.SpecFor(key)
	if !ok {
		return "", Envelope{"error": fmt.Sprintf("unknown credential: %s", key)}
	}
	value, err := d.creds.Get(ctx, key)
	if err != nil {
		d.logger.Printf("credential lookup failed for %s: %v", key, err)
		value = ""
	}
	if value == "" {
		return "", Envelope{
			"error": fmt.Sprintf("%s environment variable not set", spec.EnvVar),
			"help":  spec.Help,
		}
	}
	return value, nil
}

// guard runs fn, converting a panic into an error envelope with prefix
// prepended to the panic value.
func guard(prefix string, fn func() Envelope) Envelope {
	return guardWith(func(r any) Envelope {
		return Envelope{"error": fmt.Sprintf("%s%v", prefix, r)}
	}, fn)
}

// guardWith runs fn, converting a panic into the envelope built by wrap.
func guardWith(wrap func(r any) Envelope, fn func() Envelope) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			env = wrap(r)
		}
	}()
	return fn()
}

func clampLimit(limit, upper int) int {
	if limit < 1 {
		return 1
	}
	if limit > upper {
		return upper
	}
	return limit
}

// NormalizePlatform lowercases and trims a platform name.
func NormalizePlatform(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

func unknownPlatformError(p string) string {
	return fmt.Sprintf("Unknown platform: %s. Use 'slack' or 'discord'.", p)
}

// EnvelopeFailed reports whether a tool response envelope describes a
// failure. Envelopes carrying a valid or success flag are judged by the
// flag; otherwise a non-empty error string means failure.
func EnvelopeFailed(env Envelope) bool {
	if valid, ok := env["valid"].(bool); ok {
		return !valid
	}
	if success, ok := env["success"].(bool); ok {
		return !success
	}
	if msg, ok := env["error"].(string); ok && msg != "" {
		return true
	}
	return false
}

var remoteErrorPrefixes = []string{
	"Slack error: ",
	"Discord error: ",
	"Slack upload error: ",
	"Discord upload error: ",
	"Failed to read messages: ",
	"Failed to add reaction: ",
	"Failed to list channels: ",
}

// ClassifyEnvelope maps a failure envelope to an error type for metrics
// labels. Successful envelopes map to the empty string.
func ClassifyEnvelope(env Envelope) types.ErrorType {
	if !EnvelopeFailed(env) {
		return ""
	}
	if _, ok := env["help"]; ok {
		return types.ErrorTypeCredential
	}
	msg, _ := env["error"].(string)
	if strings.HasPrefix(msg, "Unknown platform: ") {
		return types.ErrorTypeValidation
	}
	if strings.Contains(msg, "cannot add reactions") {
		return types.ErrorTypeUnsupported
	}
	for _, prefix := range remoteErrorPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return types.ErrorTypeRemote
		}
	}
	if _, ok := env["success"]; ok {
		return types.ErrorTypeRemote
	}
	if _, ok := env["valid"]; ok {
		if _, hasPlatform := env["platform"]; hasPlatform {
			return types.ErrorTypeRemote
		}
		return types.ErrorTypeInternal
	}
	return types.ErrorTypeValidation
}
