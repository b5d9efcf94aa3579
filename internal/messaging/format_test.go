package messaging

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToSlack(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bold", "**release** is out", "*release* is out"},
		{"strikethrough", "~~old plan~~", "~old plan~"},
		{"link", "see [the docs](https://example.com/docs)", "see <https://example.com/docs|the docs>"},
		{"multiple bold", "**a** and **b**", "*a* and *b*"},
		{
			"mixed",
			"**done**: ~~v1~~ [v2](https://example.com/v2)",
			"*done*: ~v1~ <https://example.com/v2|v2>",
		},
		{"plain", "nothing to rewrite", "nothing to rewrite"},
		{"single asterisks untouched", "*already slack*", "*already slack*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MarkdownToSlack(tt.input))
		})
	}
}

func TestTranslateMarkdown(t *testing.T) {
	assert.Equal(t, "*bold*", TranslateMarkdown("slack", "**bold**"))
	assert.Equal(t, "*bold*", TranslateMarkdown(" Slack ", "**bold**"))
	assert.Equal(t, "**bold**", TranslateMarkdown("discord", "**bold**"))
}

func TestNormalizeEmoji(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{":rocket:", "rocket"},
		{"rocket", "rocket"},
		{" :tada: ", "tada"},
		{"+1", "thumbsup"},
		{":+1:", "thumbsup"},
		{"-1", "thumbsdown"},
		{"thumbs_up", "thumbsup"},
		{"thumbs_down", "thumbsdown"},
		{"fire", "fire"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeEmoji(tt.input), "input %q", tt.input)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "lo...", Truncate("longer than five", 5))

	multibyte := strings.Repeat("な", 10)
	truncated := Truncate(multibyte, 8)
	assert.Equal(t, strings.Repeat("な", 5)+"...", truncated)
}

func TestBlockBuilder(t *testing.T) {
	builder := NewBlockBuilder().
		Header("Deploy finished").
		Section("*v1.4.2* is live").
		Divider().
		Context("triggered by release pipeline")
	assert.Equal(t, 4, builder.Len())

	raw, err := builder.JSON()
	require.NoError(t, err)

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal(raw, &blocks))
	require.Len(t, blocks, 4)
	assert.Equal(t, "header", blocks[0]["type"])
	assert.Equal(t, "section", blocks[1]["type"])
	assert.Equal(t, "divider", blocks[2]["type"])
	assert.Equal(t, "context", blocks[3]["type"])

	header := blocks[0]["text"].(map[string]any)
	assert.Equal(t, "plain_text", header["type"])
	assert.Equal(t, "Deploy finished", header["text"])

	section := blocks[1]["text"].(map[string]any)
	assert.Equal(t, "mrkdwn", section["type"])
}

func TestBlockBuilderTruncatesHeader(t *testing.T) {
	long := strings.Repeat("x", 300)
	raw, err := NewBlockBuilder().Header(long).JSON()
	require.NoError(t, err)

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal(raw, &blocks))
	text := blocks[0]["text"].(map[string]any)["text"].(string)
	assert.Len(t, text, headerTextLimit)
	assert.True(t, strings.HasSuffix(text, "..."))
}
