package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/ca-srg/chatbridge/internal/types"
)

// DiscordAdapter sends through a single Discord webhook URL. Webhooks
// are a write-only surface: reading messages, adding reactions, and
// listing channels are not possible, and those operations return
// "not supported" results without any network call.
type DiscordAdapter struct {
	webhookURL string
	httpClient *http.Client
}

var _ MessagingPlatform = (*DiscordAdapter)(nil)

// DiscordOption configures DiscordAdapter.
type DiscordOption func(*DiscordAdapter)

// WithDiscordHTTPClient substitutes the HTTP client, for tests.
func WithDiscordHTTPClient(client *http.Client) DiscordOption {
	return func(a *DiscordAdapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithDiscordTimeout overrides the per-request HTTP deadline.
func WithDiscordTimeout(d time.Duration) DiscordOption {
	return func(a *DiscordAdapter) {
		if d > 0 {
			a.httpClient.Timeout = d
		}
	}
}

// NewDiscordAdapter constructs an adapter around a webhook URL.
func NewDiscordAdapter(webhookURL string, opts ...DiscordOption) *DiscordAdapter {
	adapter := &DiscordAdapter{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// Name returns the platform identifier.
func (a *DiscordAdapter) Name() string {
	return types.PlatformDiscord
}

// webhookPayload is the JSON body of a webhook execution.
type webhookPayload struct {
	Content   string          `json:"content"`
	Username  string          `json:"username,omitempty"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	TTS       bool            `json:"tts,omitempty"`
	Embeds    json.RawMessage `json:"embeds,omitempty"`
}

// executeURL builds the webhook execution URL. wait=true requests a
// synchronous response body so the created message can be read back.
func (a *DiscordAdapter) executeURL(threadID string) string {
	q := url.Values{}
	if threadID != "" {
		q.Set("thread_id", threadID)
	}
	q.Set("wait", "true")
	return a.webhookURL + "?" + q.Encode()
}

// SendMessage executes the webhook. The channel argument is ignored;
// the destination is fixed by the webhook URL. A 204 response still
// counts as success, with no message identifier.
func (a *DiscordAdapter) SendMessage(ctx context.Context, _ string, text, threadID string, opts *types.SendOptions) types.SendResult {
	payload := webhookPayload{Content: text}
	if opts != nil {
		payload.Username = opts.Username
		payload.AvatarURL = opts.AvatarURL
		payload.TTS = opts.TTS
		payload.Embeds = opts.Embeds
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.SendResult{Success: false, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.executeURL(threadID), bytes.NewReader(body))
	if err != nil {
		return types.SendResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return types.SendResult{Success: false, Error: fmt.Sprintf("Network error: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return types.SendResult{Success: true}
	}

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return types.SendResult{Success: false, Error: webhookError(resp.StatusCode, data)}
	}

	var created struct {
		ID        string `json:"id"`
		ChannelID string `json:"channel_id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return types.SendResult{Success: false, Error: fmt.Sprintf("invalid webhook response: %v", err)}
	}
	return types.SendResult{
		Success:   true,
		MessageID: created.ID,
		Channel:   created.ChannelID,
	}
}

// GetMessages is not possible through a webhook; it returns an empty
// slice without touching the network.
func (a *DiscordAdapter) GetMessages(_ context.Context, _ string, _ int, _ string) ([]types.Message, error) {
	return []types.Message{}, nil
}

// AddReaction is not possible through a webhook.
func (a *DiscordAdapter) AddReaction(_ context.Context, _, _, _ string) types.ReactionResult {
	return types.ReactionResult{
		Success: false,
		Error:   "Discord webhooks cannot add reactions. Use a Discord Bot instead.",
	}
}

// UploadFile posts content as a multipart attachment. The title
// argument has no webhook equivalent and is ignored; comment becomes
// the accompanying message.
func (a *DiscordAdapter) UploadFile(ctx context.Context, _ string, filename string, content []byte, _ string, comment string) types.FileUploadResult {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return types.FileUploadResult{Success: false, Error: err.Error()}
	}
	if _, err := part.Write(content); err != nil {
		return types.FileUploadResult{Success: false, Error: err.Error()}
	}
	if comment != "" {
		if err := writer.WriteField("content", comment); err != nil {
			return types.FileUploadResult{Success: false, Error: err.Error()}
		}
	}
	if err := writer.Close(); err != nil {
		return types.FileUploadResult{Success: false, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.executeURL(""), &buf)
	if err != nil {
		return types.FileUploadResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return types.FileUploadResult{Success: false, Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return types.FileUploadResult{Success: false, Error: webhookError(resp.StatusCode, data)}
	}

	var created struct {
		ID          string `json:"id"`
		Attachments []struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return types.FileUploadResult{Success: false, Error: fmt.Sprintf("invalid webhook response: %v", err)}
	}

	if len(created.Attachments) > 0 {
		return types.FileUploadResult{
			Success: true,
			FileID:  created.Attachments[0].ID,
			URL:     created.Attachments[0].URL,
		}
	}
	return types.FileUploadResult{Success: true, FileID: created.ID}
}

// ListChannels is not possible through a webhook; the webhook is bound
// to a single channel.
func (a *DiscordAdapter) ListChannels(_ context.Context, _ bool, _ int) ([]types.Channel, error) {
	return []types.Channel{}, nil
}

// ValidateCredentials fetches the webhook record with a read-only GET
// and reports the configured name, channel, and guild.
func (a *DiscordAdapter) ValidateCredentials(ctx context.Context) types.ValidationResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.webhookURL, nil)
	if err != nil {
		return types.ValidationResult{Valid: false, Error: err.Error()}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return types.ValidationResult{Valid: false, Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return types.ValidationResult{Valid: false, Error: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var webhook struct {
		Name      string `json:"name"`
		ChannelID string `json:"channel_id"`
		GuildID   string `json:"guild_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&webhook); err != nil {
		return types.ValidationResult{Valid: false, Error: fmt.Sprintf("invalid webhook response: %v", err)}
	}
	return types.ValidationResult{
		Valid:     true,
		Name:      webhook.Name,
		ChannelID: webhook.ChannelID,
		GuildID:   webhook.GuildID,
	}
}

// webhookError extracts the API error message from a webhook response
// body, falling back to the HTTP status.
func webhookError(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return fmt.Sprintf("HTTP %d", status)
}
