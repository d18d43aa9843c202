package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.False(t, config.Metrics.Enabled)
	assert.False(t, config.Tracing.Enabled)
	assert.Equal(t, "otlp", config.Tracing.Exporter)
	assert.Equal(t, 1.0, config.Tracing.SampleRate)
}

func TestNewWithDefaultsIsUsable(t *testing.T) {
	obs, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx, span := obs.Tracer.StartSpan(context.Background(), SpanConvert, ConversionAttrs("urls", "docx", "pdf")...)
	span.End()

	obs.Metrics.RecordConversion(ctx, "urls", "OK", time.Second)
	obs.Metrics.RecordDownload(ctx, 10)
	obs.Metrics.RecordToolCall(ctx, "convert", "ok", time.Millisecond)

	require.NoError(t, obs.Shutdown(context.Background()))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var m *MetricsCollector
	m.RecordConversion(context.Background(), "urls", "OK", time.Second)
	m.RecordDownload(context.Background(), 1)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestEnabledMetricsExposeScrapeEndpoint(t *testing.T) {
	m, err := NewMetricsCollector(MetricsConfig{Enabled: true})
	require.NoError(t, err)
	defer func() { _ = m.Shutdown(context.Background()) }()

	m.RecordConversion(context.Background(), "directory", "API_ERROR", 50*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "convertmcp_conversions_total")
}

func TestUnsupportedExporter(t *testing.T) {
	_, err := NewTracerProvider(TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter")
}

func TestLoggerWritesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: buf})

	ctx := ContextWithRequestID(context.Background(), "42")
	logger.WithContext(ctx).Info("handled", "method", "tools/call")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"42"`)
	assert.Contains(t, out, `"method":"tools/call"`)
}

func TestSanitizeAPIKey(t *testing.T) {
	assert.Equal(t, "***", SanitizeAPIKey("short"))
	assert.Equal(t, "abcdefgh...wxyz", SanitizeAPIKey("abcdefghijklmnopqrstuvwxyz"))
}
