package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector records conversion and tool-call metrics.
// A zero value (metrics disabled) is safe to use; every recorder is a no-op.
type MetricsCollector struct {
	provider *sdkmetric.MeterProvider

	conversions        metric.Int64Counter
	conversionDuration metric.Float64Histogram
	downloadBytes      metric.Int64Counter

	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("convertmcp")

	conversions, err := meter.Int64Counter(
		"convertmcp.conversions.total",
		metric.WithDescription("Total number of conversions by outcome code"),
		metric.WithUnit("{conversion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversions counter: %w", err)
	}

	conversionDuration, err := meter.Float64Histogram(
		"convertmcp.conversion.duration",
		metric.WithDescription("Conversion duration in seconds, downloads included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion_duration histogram: %w", err)
	}

	downloadBytes, err := meter.Int64Counter(
		"convertmcp.download.bytes",
		metric.WithDescription("Bytes of result files written to disk"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create download_bytes counter: %w", err)
	}

	toolCalls, err := meter.Int64Counter(
		"convertmcp.tool.calls.total",
		metric.WithDescription("Total number of MCP tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_calls counter: %w", err)
	}

	toolDuration, err := meter.Float64Histogram(
		"convertmcp.tool.duration",
		metric.WithDescription("Tool call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_duration histogram: %w", err)
	}

	return &MetricsCollector{
		provider:           provider,
		conversions:        conversions,
		conversionDuration: conversionDuration,
		downloadBytes:      downloadBytes,
		toolCalls:          toolCalls,
		toolDuration:       toolDuration,
	}, nil
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsCollector) Handler() http.Handler {
	return promclient.Handler()
}

// Shutdown flushes and stops the meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// RecordConversion records one finished conversion. code is the envelope
// error code, or "OK" on success.
func (m *MetricsCollector) RecordConversion(ctx context.Context, operation, code string, duration time.Duration) {
	if m == nil || m.conversions == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", code),
	)
	m.conversions.Add(ctx, 1, attrs)
	m.conversionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDownload records bytes persisted for one result file.
func (m *MetricsCollector) RecordDownload(ctx context.Context, bytes int64) {
	if m == nil || m.downloadBytes == nil {
		return
	}
	m.downloadBytes.Add(ctx, bytes)
}

// RecordToolCall records a tool invocation
func (m *MetricsCollector) RecordToolCall(ctx context.Context, toolName string, status string, duration time.Duration) {
	if m == nil || m.toolCalls == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", toolName),
		attribute.String("status", status),
	}

	m.toolCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("tool_name", toolName)))
}
