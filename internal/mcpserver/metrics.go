package mcpserver

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	toolMetricsOnce      sync.Once
	toolRequestCounter   metric.Int64Counter
	toolErrorCounter     metric.Int64Counter
	toolLatencyHistogram metric.Float64Histogram
)

func initToolMetrics() {
	toolMetricsOnce.Do(func() {
		meter := otel.Meter("chatbridge/mcpserver")

		var err error
		toolRequestCounter, err = meter.Int64Counter(
			"chatbridge.mcp.requests.total",
			metric.WithDescription("Total MCP server tool requests"),
		)
		if err != nil {
			log.Printf("observability: failed to create MCP request counter: %v", err)
		}

		toolErrorCounter, err = meter.Int64Counter(
			"chatbridge.mcp.errors.total",
			metric.WithDescription("Total MCP server tool errors"),
		)
		if err != nil {
			log.Printf("observability: failed to create MCP error counter: %v", err)
		}

		toolLatencyHistogram, err = meter.Float64Histogram(
			"chatbridge.mcp.response_time",
			metric.WithDescription("MCP server tool response time (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("observability: failed to create MCP latency histogram: %v", err)
		}
	})
}

// recordToolMetrics counts one tool call. A non-empty errType marks the call
// failed and feeds the error counter with an error.type attribute.
func recordToolMetrics(ctx context.Context, attrs []attribute.KeyValue, duration time.Duration, errType string) {
	initToolMetrics()
	if toolRequestCounter != nil {
		toolRequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if toolLatencyHistogram != nil {
		toolLatencyHistogram.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if errType != "" && toolErrorCounter != nil {
		errAttrs := make([]attribute.KeyValue, len(attrs)+1)
		copy(errAttrs, attrs)
		errAttrs[len(attrs)] = attribute.String("error.type", errType)
		toolErrorCounter.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}
