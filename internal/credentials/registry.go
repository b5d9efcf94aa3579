package credentials

import (
	"sort"

	"github.com/ca-srg/chatbridge/internal/types"
)

// Credential keys known to the registry.
const (
	KeySlack          = "slack"
	KeyDiscordWebhook = "discord_webhook"
)

// Spec describes one credential the messaging tools can use: where it
// comes from in the environment, which tools need it, and where a user
// can obtain it.
type Spec struct {
	Key         string
	EnvVar      string
	Tools       []string
	Required    bool
	Help        string
	HelpURL     string
	Description string
}

var registry = map[string]Spec{
	KeySlack: {
		Key:    KeySlack,
		EnvVar: "SLACK_BOT_TOKEN",
		Tools: []string{
			types.ToolSend,
			types.ToolRead,
			types.ToolReact,
			types.ToolUpload,
			types.ToolListChannels,
			types.ToolValidate,
		},
		Required: false,
		Help:     "Get a bot token at https://api.slack.com/apps",
		HelpURL:  "https://api.slack.com/apps",
		Description: "Slack Bot Token (xoxb-...) for Slack integration. " +
			"Required scopes: chat:write, channels:history, reactions:write, " +
			"files:write, channels:read",
	},
	KeyDiscordWebhook: {
		Key:    KeyDiscordWebhook,
		EnvVar: "DISCORD_WEBHOOK_URL",
		Tools: []string{
			types.ToolSend,
			types.ToolUpload,
			types.ToolValidate,
		},
		Required: false,
		Help:     "Create a webhook at https://support.discord.com/hc/en-us/articles/228383668",
		HelpURL:  "https://support.discord.com/hc/en-us/articles/228383668",
		Description: "Discord Webhook URL for sending messages. " +
			"Create in Server Settings > Integrations > Webhooks",
	},
}

// Specs returns all registered credential specs, ordered by key.
func Specs() []Spec {
	specs := make([]Spec, 0, len(registry))
	for _, spec := range registry {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Key < specs[j].Key })
	return specs
}

// SpecFor returns the spec registered under key.
func SpecFor(key string) (Spec, bool) {
	spec, ok := registry[key]
	return spec, ok
}

// SpecsForTool returns the specs covering the named tool, ordered by key.
func SpecsForTool(tool string) []Spec {
	var specs []Spec
	for _, spec := range Specs() {
		for _, t := range spec.Tools {
			if t == tool {
				specs = append(specs, spec)
				break
			}
		}
	}
	return specs
}
