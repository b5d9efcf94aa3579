package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ca-srg/chatbridge/internal/types"
)

var (
	otelMetricsOnce       sync.Once
	otelRegistrationError error
)

// InitOTelMetrics initializes OpenTelemetry metrics for invocation counts.
// It registers observable gauges that report cumulative totals from SQLite.
// This should be called after observability.Init() has been called.
func InitOTelMetrics() error {
	otelMetricsOnce.Do(func() {
		meter := otel.Meter("chatbridge/metrics")

		_, err := meter.Int64ObservableGauge(
			"chatbridge.invocations.total",
			metric.WithDescription("Cumulative total tool invocations by mode (mcp, cli)"),
			metric.WithUnit("{invocations}"),
			metric.WithInt64Callback(modeCallback),
		)
		if err != nil {
			log.Printf("metrics: failed to create invocation gauge: %v", err)
			otelRegistrationError = err
			return
		}

		_, err = meter.Int64ObservableGauge(
			"chatbridge.tool.invocations.total",
			metric.WithDescription("Cumulative total invocations per messaging tool"),
			metric.WithUnit("{invocations}"),
			metric.WithInt64Callback(toolCallback),
		)
		if err != nil {
			log.Printf("metrics: failed to create tool gauge: %v", err)
			otelRegistrationError = err
			return
		}
	})
	return otelRegistrationError
}

// modeCallback reports cumulative totals per invocation mode.
func modeCallback(_ context.Context, observer metric.Int64Observer) error {
	stats := GetStats()
	if stats == nil {
		// Store not initialized, report zeros
		for _, mode := range []Mode{ModeMCP, ModeCLI} {
			observer.Observe(0, metric.WithAttributes(
				attribute.String("mode", string(mode)),
			))
		}
		return nil
	}

	for mode, count := range stats {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("mode", string(mode)),
		))
	}

	return nil
}

// toolCallback reports cumulative totals per tool.
func toolCallback(_ context.Context, observer metric.Int64Observer) error {
	stats := GetToolStats()
	if stats == nil {
		for _, tool := range types.Tools() {
			observer.Observe(0, metric.WithAttributes(
				attribute.String("tool", tool),
			))
		}
		return nil
	}

	for tool, count := range stats {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("tool", tool),
		))
	}

	return nil
}

// ResetOTelForTesting resets the OTel initialization state for testing
// purposes. This should only be used in tests.
func ResetOTelForTesting() {
	otelMetricsOnce = sync.Once{}
	otelRegistrationError = nil
}
