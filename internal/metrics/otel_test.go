package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ca-srg/chatbridge/internal/types"
)

func setupManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader
}

func collectGauge(t *testing.T, reader *sdkmetric.ManualReader, name, attrKey string) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	for _, scopeMetrics := range rm.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name != name {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			if !ok {
				t.Fatalf("Expected Gauge[int64] for %s, got %T", name, m.Data)
			}
			results := make(map[string]int64)
			for _, dp := range gauge.DataPoints {
				for _, attr := range dp.Attributes.ToSlice() {
					if string(attr.Key) == attrKey {
						results[attr.Value.AsString()] = dp.Value
					}
				}
			}
			return results
		}
	}

	t.Fatalf("Metric %q not found in collected metrics", name)
	return nil
}

func TestOTelMetricsIntegration(t *testing.T) {
	ResetForTesting()
	ResetOTelForTesting()
	defer func() {
		ResetForTesting()
		ResetOTelForTesting()
	}()

	store := newTestStore(t)
	SetStoreForTesting(store)

	_ = store.Increment(ModeMCP, types.ToolSend)
	_ = store.Increment(ModeMCP, types.ToolSend)
	_ = store.Increment(ModeMCP, types.ToolRead)
	_ = store.Increment(ModeCLI, types.ToolValidate)

	reader := setupManualReader(t)
	if err := InitOTelMetrics(); err != nil {
		t.Fatalf("InitOTelMetrics failed: %v", err)
	}

	modes := collectGauge(t, reader, "chatbridge.invocations.total", "mode")
	if modes["mcp"] != 3 {
		t.Errorf("Mode mcp: expected 3, got %d", modes["mcp"])
	}
	if modes["cli"] != 1 {
		t.Errorf("Mode cli: expected 1, got %d", modes["cli"])
	}

	tools := collectGauge(t, reader, "chatbridge.tool.invocations.total", "tool")
	if tools[types.ToolSend] != 2 {
		t.Errorf("Tool send: expected 2, got %d", tools[types.ToolSend])
	}
	if tools[types.ToolValidate] != 1 {
		t.Errorf("Tool validate: expected 1, got %d", tools[types.ToolValidate])
	}
}

func TestOTelMetricsAfterIncrement(t *testing.T) {
	ResetForTesting()
	ResetOTelForTesting()
	defer func() {
		ResetForTesting()
		ResetOTelForTesting()
	}()

	store := newTestStore(t)
	SetStoreForTesting(store)

	reader := setupManualReader(t)
	if err := InitOTelMetrics(); err != nil {
		t.Fatalf("InitOTelMetrics failed: %v", err)
	}

	// First collection - should be all zeros
	modes := collectGauge(t, reader, "chatbridge.invocations.total", "mode")
	if modes["mcp"] != 0 || modes["cli"] != 0 {
		t.Errorf("Expected zero totals before increments, got %v", modes)
	}

	_ = store.Increment(ModeMCP, types.ToolSend)
	_ = store.Increment(ModeMCP, types.ToolReact)
	_ = store.Increment(ModeCLI, types.ToolSend)

	// Second collection - the callback should re-read cumulative totals
	modes = collectGauge(t, reader, "chatbridge.invocations.total", "mode")
	if modes["mcp"] != 2 {
		t.Errorf("Mode mcp: expected 2, got %d", modes["mcp"])
	}
	if modes["cli"] != 1 {
		t.Errorf("Mode cli: expected 1, got %d", modes["cli"])
	}
}

func TestOTelMetricsWithoutStore(t *testing.T) {
	// No store initialized
	ResetForTesting()
	ResetOTelForTesting()
	defer func() {
		ResetForTesting()
		ResetOTelForTesting()
	}()

	reader := setupManualReader(t)
	if err := InitOTelMetrics(); err != nil {
		t.Fatalf("InitOTelMetrics failed: %v", err)
	}

	modes := collectGauge(t, reader, "chatbridge.invocations.total", "mode")
	for _, mode := range []Mode{ModeMCP, ModeCLI} {
		if modes[string(mode)] != 0 {
			t.Errorf("Mode %s: expected 0 without a store, got %d", mode, modes[string(mode)])
		}
	}

	tools := collectGauge(t, reader, "chatbridge.tool.invocations.total", "tool")
	if len(tools) != len(types.Tools()) {
		t.Errorf("Expected %d zero data points, got %d", len(types.Tools()), len(tools))
	}
	for tool, count := range tools {
		if count != 0 {
			t.Errorf("Tool %s: expected 0 without a store, got %d", tool, count)
		}
	}
}
