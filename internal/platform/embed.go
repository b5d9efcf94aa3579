package platform

import (
	"context"
	"encoding/json"

	"github.com/ca-srg/chatbridge/internal/types"
)

// DefaultEmbedColor is Discord blurple, used when an embed does not set
// its own color.
const DefaultEmbedColor = 0x5865F2

// Embed is a Discord rich-embed object, serialized as-is into the
// webhook payload.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
}

// EmbedField is a name/value pair rendered inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the footer line of an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// EmbedImage references an image by URL.
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedAuthor is the author header of an embed.
type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

// SendEmbed posts a single rich embed through the webhook. A zero color
// falls back to DefaultEmbedColor.
func (a *DiscordAdapter) SendEmbed(ctx context.Context, embed Embed) types.SendResult {
	if embed.Color == 0 {
		embed.Color = DefaultEmbedColor
	}

	raw, err := json.Marshal([]Embed{embed})
	if err != nil {
		return types.SendResult{Success: false, Error: err.Error()}
	}
	return a.SendMessage(ctx, "", "", "", &types.SendOptions{Embeds: raw})
}
