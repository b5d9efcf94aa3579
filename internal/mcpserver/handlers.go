package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ca-srg/chatbridge/internal/messaging"
	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

var mcpTracer = otel.Tracer("chatbridge/mcpserver")

// ToolHandlers exposes the messaging dispatcher through SDK tool callbacks.
type ToolHandlers struct {
	dispatcher *messaging.Dispatcher
	logger     *log.Logger
}

// NewToolHandlers creates the handler set for the given dispatcher.
func NewToolHandlers(dispatcher *messaging.Dispatcher, logger *log.Logger) (*ToolHandlers, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	return &ToolHandlers{
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// handlerFor maps a canonical tool name to its callback.
func (h *ToolHandlers) handlerFor(name string) mcp.ToolHandler {
	switch name {
	case types.ToolSend:
		return h.handleSend
	case types.ToolRead:
		return h.handleRead
	case types.ToolReact:
		return h.handleReact
	case types.ToolUpload:
		return h.handleUpload
	case types.ToolListChannels:
		return h.handleListChannels
	case types.ToolValidate:
		return h.handleValidate
	default:
		return nil
	}
}

func (h *ToolHandlers) handleSend(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args types.SendRequest
	if err := unmarshalArguments(req, &args); err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("messaging.platform", messaging.NormalizePlatform(args.Platform)),
	}
	if args.Channel != "" {
		attrs = append(attrs, attribute.String("messaging.channel", args.Channel))
	}

	return h.run(ctx, types.ToolSend, attrs, func(ctx context.Context) messaging.Envelope {
		return h.dispatcher.Send(ctx, &args)
	})
}

func (h *ToolHandlers) handleRead(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args types.ReadRequest
	if err := unmarshalArguments(req, &args); err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("messaging.platform", "slack"),
		attribute.String("messaging.channel", args.Channel),
		attribute.Int("messaging.limit", args.Limit),
	}

	return h.run(ctx, types.ToolRead, attrs, func(ctx context.Context) messaging.Envelope {
		return h.dispatcher.Read(ctx, &args)
	})
}

func (h *ToolHandlers) handleReact(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args types.ReactRequest
	if err := unmarshalArguments(req, &args); err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("messaging.platform", "slack"),
		attribute.String("messaging.channel", args.Channel),
		attribute.String("messaging.emoji", messaging.NormalizeEmoji(args.Emoji)),
	}

	return h.run(ctx, types.ToolReact, attrs, func(ctx context.Context) messaging.Envelope {
		return h.dispatcher.React(ctx, &args)
	})
}

func (h *ToolHandlers) handleUpload(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args types.UploadRequest
	if err := unmarshalArguments(req, &args); err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("messaging.platform", messaging.NormalizePlatform(args.Platform)),
		attribute.String("messaging.filename", truncateForAttribute(args.Filename)),
	}
	if args.Channel != "" {
		attrs = append(attrs, attribute.String("messaging.channel", args.Channel))
	}

	return h.run(ctx, types.ToolUpload, attrs, func(ctx context.Context) messaging.Envelope {
		return h.dispatcher.Upload(ctx, &args)
	})
}

func (h *ToolHandlers) handleListChannels(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args types.ChannelsRequest
	if err := unmarshalArguments(req, &args); err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("messaging.platform", "slack"),
		attribute.Bool("messaging.include_private", args.IncludePrivate),
	}

	return h.run(ctx, types.ToolListChannels, attrs, func(ctx context.Context) messaging.Envelope {
		return h.dispatcher.ListChannels(ctx, &args)
	})
}

func (h *ToolHandlers) handleValidate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args types.ValidateRequest
	if err := unmarshalArguments(req, &args); err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("messaging.platform", messaging.NormalizePlatform(args.Platform)),
	}

	return h.run(ctx, types.ToolValidate, attrs, func(ctx context.Context) messaging.Envelope {
		return h.dispatcher.Validate(ctx, &args)
	})
}

// run executes one tool call with tracing, metrics, and envelope wrapping.
func (h *ToolHandlers) run(ctx context.Context, tool string, attrs []attribute.KeyValue, fn func(context.Context) messaging.Envelope) (*mcp.CallToolResult, error) {
	metrics.RecordInvocation(metrics.ModeMCP, tool)

	ctx, span := mcpTracer.Start(ctx, "mcpserver."+tool)
	defer span.End()

	attrs = append(attrs, attribute.String("mcp.tool", tool))
	if clientIP, ok := ctx.Value(clientIPContextKey).(string); ok && clientIP != "" {
		attrs = append(attrs, attribute.String("client.ip", clientIP))
	}
	span.SetAttributes(attrs...)

	start := time.Now()
	env := fn(ctx)
	duration := time.Since(start)

	errType := string(messaging.ClassifyEnvelope(env))
	if errType != "" {
		span.SetStatus(codes.Error, truncateForAttribute(envelopeErrorText(env)))
	}
	recordToolMetrics(ctx, attrs, duration, errType)

	payload, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tool response: %w", err)
	}

	failed := messaging.EnvelopeFailed(env)
	if failed {
		h.logger.Printf("tool %s failed: %s", tool, envelopeErrorText(env))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		IsError: failed,
	}, nil
}

func unmarshalArguments(req *mcp.CallToolRequest, v interface{}) error {
	if req == nil || req.Params == nil || req.Params.Arguments == nil {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("failed to unmarshal tool arguments: %w", err)
	}
	return nil
}

func envelopeErrorText(env messaging.Envelope) string {
	if msg, ok := env["error"].(string); ok {
		return msg
	}
	return ""
}

func truncateForAttribute(input string) string {
	const maxAttributeLength = 120
	trimmed := strings.TrimSpace(input)
	if len([]rune(trimmed)) <= maxAttributeLength {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:maxAttributeLength]) + "…"
}
