package messaging

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ca-srg/chatbridge/internal/types"
)

// Slack Block Kit text length limits.
const (
	headerTextLimit  = 150
	sectionTextLimit = 3000
)

var (
	boldPattern          = regexp.MustCompile(`\*\*(.+?)\*\*`)
	strikethroughPattern = regexp.MustCompile(`~~(.+?)~~`)
	linkPattern          = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// MarkdownToSlack rewrites common Markdown constructs into Slack mrkdwn:
// bold, strikethrough, and links.
func MarkdownToSlack(text string) string {
	text = boldPattern.ReplaceAllString(text, "*$1*")
	text = strikethroughPattern.ReplaceAllString(text, "~$1~")
	text = linkPattern.ReplaceAllString(text, "<$2|$1>")
	return text
}

// MarkdownToDiscord returns text unchanged. Discord renders standard
// Markdown natively.
func MarkdownToDiscord(text string) string {
	return text
}

// TranslateMarkdown rewrites Markdown for the named platform.
func TranslateMarkdown(platform, text string) string {
	if NormalizePlatform(platform) == types.PlatformSlack {
		return MarkdownToSlack(text)
	}
	return MarkdownToDiscord(text)
}

var emojiAliases = map[string]string{
	"+1":          "thumbsup",
	"-1":          "thumbsdown",
	"thumbs_up":   "thumbsup",
	"thumbs_down": "thumbsdown",
}

// NormalizeEmoji strips colon delimiters and maps common aliases to the
// canonical Slack emoji name.
func NormalizeEmoji(emoji string) string {
	name := strings.Trim(strings.TrimSpace(emoji), ":")
	if canonical, ok := emojiAliases[name]; ok {
		return canonical
	}
	return name
}

// Truncate shortens s to at most limit runes. Truncated text ends with
// "...".
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// BlockBuilder assembles a Slack Block Kit payload. Text is truncated to
// the Block Kit limits for each block type.
type BlockBuilder struct {
	blocks []slack.Block
}

// NewBlockBuilder creates an empty BlockBuilder.
func NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{}
}

// Header appends a plain text header block.
func (b *BlockBuilder) Header(text string) *BlockBuilder {
	obj := slack.NewTextBlockObject(slack.PlainTextType, Truncate(text, headerTextLimit), true, false)
	b.blocks = append(b.blocks, slack.NewHeaderBlock(obj))
	return b
}

// Section appends a mrkdwn section block.
func (b *BlockBuilder) Section(markdown string) *BlockBuilder {
	obj := slack.NewTextBlockObject(slack.MarkdownType, Truncate(markdown, sectionTextLimit), false, false)
	b.blocks = append(b.blocks, slack.NewSectionBlock(obj, nil, nil))
	return b
}

// Context appends a mrkdwn context block.
func (b *BlockBuilder) Context(markdown string) *BlockBuilder {
	obj := slack.NewTextBlockObject(slack.MarkdownType, markdown, false, false)
	b.blocks = append(b.blocks, slack.NewContextBlock("", obj))
	return b
}

// Divider appends a divider block.
func (b *BlockBuilder) Divider() *BlockBuilder {
	b.blocks = append(b.blocks, slack.NewDividerBlock())
	return b
}

// Len returns the number of accumulated blocks.
func (b *BlockBuilder) Len() int {
	return len(b.blocks)
}

// JSON renders the accumulated blocks as a raw Block Kit array suitable
// for the blocks field of a send request.
func (b *BlockBuilder) JSON() (json.RawMessage, error) {
	data, err := json.Marshal(b.blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blocks: %w", err)
	}
	return data, nil
}
