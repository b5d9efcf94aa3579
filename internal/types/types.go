package types

import (
	"encoding/json"
	"time"
)

// Platform names accepted by the messaging tools.
const (
	PlatformSlack   = "slack"
	PlatformDiscord = "discord"
)

// Tool names exposed over MCP.
const (
	ToolSend         = "messaging_send"
	ToolRead         = "messaging_read"
	ToolReact        = "messaging_react"
	ToolUpload       = "messaging_upload"
	ToolListChannels = "messaging_list_channels"
	ToolValidate     = "messaging_validate"
)

// Tools lists the tool names in registration order.
func Tools() []string {
	return []string{ToolSend, ToolRead, ToolReact, ToolUpload, ToolListChannels, ToolValidate}
}

// Message represents a message fetched from a messaging platform
type Message struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	Content   string          `json:"content"`
	Author    string          `json:"author"`
	Timestamp string          `json:"timestamp"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Metadata  MessageMetadata `json:"metadata"`
}

// MessageMetadata carries platform-specific extras attached to a message
type MessageMetadata struct {
	Reactions  []Reaction `json:"reactions"`
	ReplyCount int        `json:"reply_count"`
	Files      []string   `json:"files"`
}

// Reaction is an emoji reaction tally on a message
type Reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SendResult represents the outcome of sending a single message
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReactionResult represents the outcome of adding an emoji reaction
type ReactionResult struct {
	Success bool   `json:"success"`
	Note    string `json:"note,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FileUploadResult represents the outcome of uploading a file
type FileUploadResult struct {
	Success bool   `json:"success"`
	FileID  string `json:"file_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Channel represents a channel or conversation on a platform
type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsPrivate   bool   `json:"is_private"`
	MemberCount int    `json:"member_count"`
}

// ValidationResult represents the outcome of a credential check. The
// identity fields are platform-specific: Slack fills user/team from
// auth.test, Discord fills name/channel/guild from the webhook record.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	User   string `json:"user,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Team   string `json:"team,omitempty"`
	TeamID string `json:"team_id,omitempty"`

	Name      string `json:"name,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	GuildID   string `json:"guild_id,omitempty"`

	Error string `json:"error,omitempty"`
}

// SendOptions carries platform-specific send options. Adapters ignore
// fields their platform does not understand.
type SendOptions struct {
	// Discord webhook options
	Username  string
	AvatarURL string
	TTS       bool
	Embeds    json.RawMessage

	// Slack options, passed through opaquely
	Blocks      json.RawMessage
	Attachments json.RawMessage
	UnfurlLinks *bool
	UnfurlMedia *bool
}

// SendRequest is the argument set of the messaging_send tool
type SendRequest struct {
	Platform    string          `json:"platform"`
	Message     string          `json:"message"`
	Channel     string          `json:"channel,omitempty"`
	ThreadID    string          `json:"thread_id,omitempty"`
	Username    string          `json:"username,omitempty"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	TTS         bool            `json:"tts,omitempty"`
	Embeds      json.RawMessage `json:"embeds,omitempty"`
	Blocks      json.RawMessage `json:"blocks,omitempty"`
	Attachments json.RawMessage `json:"attachments,omitempty"`
	UnfurlLinks *bool           `json:"unfurl_links,omitempty"`
	UnfurlMedia *bool           `json:"unfurl_media,omitempty"`
}

// ReadRequest is the argument set of the messaging_read tool. A zero
// Limit means the configured default.
type ReadRequest struct {
	Channel string `json:"channel"`
	Limit   int    `json:"limit,omitempty"`
	Before  string `json:"before,omitempty"`
}

// ReactRequest is the argument set of the messaging_react tool
type ReactRequest struct {
	Channel   string `json:"channel"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// UploadRequest is the argument set of the messaging_upload tool.
// Content is UTF-8 text; it is sent as the file body.
type UploadRequest struct {
	Platform string `json:"platform"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Channel  string `json:"channel,omitempty"`
	Title    string `json:"title,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// ChannelsRequest is the argument set of the messaging_list_channels
// tool. A zero Limit means 100.
type ChannelsRequest struct {
	IncludePrivate bool `json:"include_private,omitempty"`
	Limit          int  `json:"limit,omitempty"`
}

// ValidateRequest is the argument set of the messaging_validate tool
type ValidateRequest struct {
	Platform string `json:"platform"`
}

// ErrorType classifies a tool failure for logging and metrics
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeCredential  ErrorType = "credential"
	ErrorTypeRemote      ErrorType = "remote"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeInternal    ErrorType = "internal"
)

// Config represents the chatbridge runtime configuration
type Config struct {
	// Messaging credentials; optional, checked per call
	SlackBotToken     string `json:"-" env:"SLACK_BOT_TOKEN"`
	DiscordWebhookURL string `json:"-" env:"DISCORD_WEBHOOK_URL"`

	// Credential resolution
	CredentialSource        string `json:"credential_source" env:"CREDENTIAL_SOURCE,default=env"`
	CredentialSecretsPrefix string `json:"credential_secrets_prefix" env:"CREDENTIAL_SECRETS_PREFIX,default=chatbridge/"`
	AWSRegion               string `json:"aws_region" env:"AWS_REGION,default=us-east-1"`

	// Messaging behavior
	MessagingHTTPTimeout      time.Duration `json:"messaging_http_timeout" env:"MESSAGING_HTTP_TIMEOUT,default=30s"`
	MessagingReadDefaultLimit int           `json:"messaging_read_default_limit" env:"MESSAGING_READ_DEFAULT_LIMIT,default=10"`

	// MCP server configuration
	MCPServerHost            string        `json:"mcp_server_host" env:"MCP_SERVER_HOST,default=localhost"`
	MCPServerPort            int           `json:"mcp_server_port" env:"MCP_SERVER_PORT,default=8080"`
	MCPServerReadTimeout     time.Duration `json:"mcp_server_read_timeout" env:"MCP_SERVER_READ_TIMEOUT,default=30s"`
	MCPServerWriteTimeout    time.Duration `json:"mcp_server_write_timeout" env:"MCP_SERVER_WRITE_TIMEOUT,default=30s"`
	MCPServerIdleTimeout     time.Duration `json:"mcp_server_idle_timeout" env:"MCP_SERVER_IDLE_TIMEOUT,default=120s"`
	MCPServerShutdownTimeout time.Duration `json:"mcp_server_shutdown_timeout" env:"MCP_SERVER_SHUTDOWN_TIMEOUT,default=30s"`
	MCPServerMaxHeaderBytes  int           `json:"mcp_server_max_header_bytes" env:"MCP_SERVER_MAX_HEADER_BYTES,default=1048576"`
	MCPServerEnableAccessLog bool          `json:"mcp_server_enable_access_logging" env:"MCP_SERVER_ENABLE_ACCESS_LOGGING,default=true"`

	// IP authentication for the MCP server
	MCPIPAuthEnabled       bool     `json:"mcp_ip_auth_enabled" env:"MCP_IP_AUTH_ENABLED,default=true"`
	MCPAllowedIPsStr       string   `json:"-" env:"MCP_ALLOWED_IPS,default=127.0.0.1|::1"`
	MCPAllowedIPs          []string `json:"mcp_allowed_ips"`
	MCPIPAuthEnableLogging bool     `json:"mcp_ip_auth_enable_logging" env:"MCP_IP_AUTH_ENABLE_LOGGING,default=true"`

	// Tool naming
	MCPToolPrefix string `json:"mcp_tool_prefix" env:"MCP_TOOL_PREFIX"`

	// OpenTelemetry
	OTelEnabled            bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName        string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=chatbridge"`
	OTelExporterEndpoint   string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterProtocol   string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler      string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=parentbased_always_on"`
	OTelTracesSamplerArg   float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}
