package mcp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertmcp/internal/jsonx"
)

func serveHTTP(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHTTPTransport(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	handler := NewHTTPHandler(newTestServer(t), HTTPConfig{Metrics: metrics})

	t.Run("request", func(t *testing.T) {
		rec := serveHTTP(handler, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp Response
		require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Nil(t, resp.Error)
		assert.Equal(t, float64(1), resp.ID)
	})

	t.Run("notification", func(t *testing.T) {
		rec := serveHTTP(handler, http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("parse error", func(t *testing.T) {
		rec := serveHTTP(handler, http.MethodPost, "/mcp", `{`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp Response
		require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, ParseError, resp.Error.Code)
	})

	t.Run("health", func(t *testing.T) {
		rec := serveHTTP(handler, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serveHTTP(handler, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "# metrics")
	})
}

func TestHTTPTransportOptionalRoutes(t *testing.T) {
	handler := NewHTTPHandler(newTestServer(t), HTTPConfig{})

	rec := serveHTTP(handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPTransportCORS(t *testing.T) {
	handler := NewHTTPHandler(newTestServer(t), HTTPConfig{EnableCORS: true})

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Less(t, rec.Code, 300)
}
