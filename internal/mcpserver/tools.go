package mcpserver

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ca-srg/chatbridge/internal/types"
)

// toolDefinition pairs a canonical tool name with its MCP definition. The
// registered name may differ when a tool prefix is configured.
type toolDefinition struct {
	name        string
	description string
	schema      map[string]interface{}
}

func toolDefinitions() []toolDefinition {
	return []toolDefinition{
		{
			name: types.ToolSend,
			description: "Send a message to Slack or Discord. Slack needs SLACK_BOT_TOKEN and a channel; " +
				"Discord sends through the configured webhook and ignores the channel argument. " +
				"Markdown is supported on both platforms.",
			schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"platform": map[string]interface{}{
						"type":        "string",
						"description": "Target platform: \"slack\" or \"discord\"",
					},
					"message": map[string]interface{}{
						"type":        "string",
						"description": "Message text to send",
						"minLength":   1,
					},
					"channel": map[string]interface{}{
						"type":        "string",
						"description": "Slack channel ID (e.g. \"C1234567890\" or \"#general\"). Ignored for Discord webhooks.",
					},
					"thread_id": map[string]interface{}{
						"type":        "string",
						"description": "Thread to reply to (Slack message timestamp)",
					},
					"username": map[string]interface{}{
						"type":        "string",
						"description": "Override the webhook bot username (Discord only)",
					},
					"avatar_url": map[string]interface{}{
						"type":        "string",
						"description": "Override the webhook bot avatar URL (Discord only)",
					},
					"tts": map[string]interface{}{
						"type":        "boolean",
						"description": "Send as text-to-speech (Discord only)",
					},
					"embeds": map[string]interface{}{
						"type":        "array",
						"description": "Raw Discord embed objects",
					},
					"blocks": map[string]interface{}{
						"type":        "array",
						"description": "Raw Slack Block Kit blocks",
					},
					"attachments": map[string]interface{}{
						"type":        "array",
						"description": "Raw Slack attachments",
					},
					"unfurl_links": map[string]interface{}{
						"type":        "boolean",
						"description": "Unfurl links in the message (Slack only)",
					},
					"unfurl_media": map[string]interface{}{
						"type":        "boolean",
						"description": "Unfurl media in the message (Slack only)",
					},
				},
				"required": []string{"platform", "message"},
			},
		},
		{
			name: types.ToolRead,
			description: "Read recent messages from a Slack channel. Slack only; Discord webhooks cannot read. " +
				"Requires SLACK_BOT_TOKEN with channels:history scope.",
			schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"channel": map[string]interface{}{
						"type":        "string",
						"description": "Slack channel ID (e.g. \"C1234567890\")",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Number of messages to return (1-100)",
						"minimum":     1,
						"maximum":     100,
						"default":     10,
					},
					"before": map[string]interface{}{
						"type":        "string",
						"description": "Fetch messages before this timestamp",
					},
				},
				"required": []string{"channel"},
			},
		},
		{
			name: types.ToolReact,
			description: "Add an emoji reaction to a Slack message. Slack only; Discord webhooks cannot react. " +
				"Requires SLACK_BOT_TOKEN with reactions:write scope.",
			schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"channel": map[string]interface{}{
						"type":        "string",
						"description": "Slack channel ID containing the message",
					},
					"message_id": map[string]interface{}{
						"type":        "string",
						"description": "Message timestamp (ts) to react to",
					},
					"emoji": map[string]interface{}{
						"type":        "string",
						"description": "Emoji name, with or without colons (e.g. \"thumbsup\", \":rocket:\")",
					},
				},
				"required": []string{"channel", "message_id", "emoji"},
			},
		},
		{
			name: types.ToolUpload,
			description: "Upload a text file to Slack or Discord. Slack needs SLACK_BOT_TOKEN with files:write " +
				"scope and a channel; Discord uploads through the configured webhook.",
			schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"platform": map[string]interface{}{
						"type":        "string",
						"description": "Target platform: \"slack\" or \"discord\"",
					},
					"filename": map[string]interface{}{
						"type":        "string",
						"description": "Name for the file (e.g. \"report.txt\")",
						"minLength":   1,
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "File content, sent as UTF-8 text",
						"minLength":   1,
					},
					"channel": map[string]interface{}{
						"type":        "string",
						"description": "Slack channel ID. Ignored for Discord webhooks.",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Title for the file (Slack only)",
					},
					"comment": map[string]interface{}{
						"type":        "string",
						"description": "Message to accompany the file",
					},
				},
				"required": []string{"platform", "filename", "content"},
			},
		},
		{
			name: types.ToolListChannels,
			description: "List available Slack channels. Slack only; Discord webhooks cannot list channels. " +
				"Requires SLACK_BOT_TOKEN with channels:read scope.",
			schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"include_private": map[string]interface{}{
						"type":        "boolean",
						"description": "Include private channels the bot is a member of",
						"default":     false,
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of channels to return (1-1000)",
						"minimum":     1,
						"maximum":     1000,
						"default":     100,
					},
				},
			},
		},
		{
			name: types.ToolValidate,
			description: "Validate messaging credentials for a platform. Calls the platform's identity " +
				"endpoint and reports who the credentials authenticate as.",
			schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"platform": map[string]interface{}{
						"type":        "string",
						"description": "Platform to validate: \"slack\" or \"discord\"",
					},
				},
				"required": []string{"platform"},
			},
		},
	}
}

// buildSDKTool converts a tool definition into the SDK representation,
// applying the configured registration prefix.
func buildSDKTool(def toolDefinition, prefix string) *mcp.Tool {
	var inputSchema *jsonschema.Schema
	if schemaBytes, err := json.Marshal(def.schema); err == nil {
		inputSchema = &jsonschema.Schema{}
		_ = json.Unmarshal(schemaBytes, inputSchema)
	}

	return &mcp.Tool{
		Name:        prefix + def.name,
		Description: def.description,
		InputSchema: inputSchema,
	}
}
