package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears every variable Load reads and searches only an empty dir.
func isolate(t *testing.T) Option {
	t.Helper()
	for _, name := range []string{
		"CONVERTAPI_SECRET", "CONVERTAPI_API_SECRET", "CONVERTAPI_BASE_URI", "CONVERTAPI_BASE_URL",
		"CONVERTAPI_REQUEST_TIMEOUT", "CONVERTAPI_LOGGING_LEVEL", "CONVERTAPI_HTTP_ADDR",
	} {
		t.Setenv(name, "")
	}
	return WithSearchDirs(t.TempDir())
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "convertmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, meta, err := Load(isolate(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultDownloadTimeout, cfg.DownloadTimeout)
	assert.Equal(t, DefaultMaxDownloadBytes, cfg.MaxDownloadBytes)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Empty(t, meta.File())
	assert.Equal(t, SourceDefault, meta.Source("base_url"))
	assert.ErrorIs(t, cfg.RequireSecret(), ErrMissingSecret)
}

func TestLoadEnvironment(t *testing.T) {
	opt := isolate(t)
	t.Setenv("CONVERTAPI_SECRET", "  secret-from-env  ")
	t.Setenv("CONVERTAPI_BASE_URI", "https://eu-v2.convertapi.com/")
	t.Setenv("CONVERTAPI_REQUEST_TIMEOUT", "45s")
	t.Setenv("CONVERTAPI_LOGGING_LEVEL", "DEBUG")

	cfg, meta, err := Load(opt)
	require.NoError(t, err)

	assert.Equal(t, "secret-from-env", cfg.APISecret)
	assert.NoError(t, cfg.RequireSecret())
	assert.Equal(t, "https://eu-v2.convertapi.com/", cfg.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, SourceEnv, meta.Source("api_secret"))
	assert.Equal(t, SourceEnv, meta.Source("base_url"))
}

func TestLoadFileThenEnvThenFlag(t *testing.T) {
	opt := isolate(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
api_secret: from-file
download_timeout: 2m
catalog_path: ./catalog.yaml
http:
  addr: 0.0.0.0:9000
  enable_cors: true
metrics:
  enabled: true
tracing:
  enabled: true
  exporter: zipkin
  zipkin_endpoint: http://localhost:9411/api/v2/spans
`)
	t.Setenv("CONVERTAPI_HTTP_ADDR", "127.0.0.1:9100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("secret", "", "")
	require.NoError(t, flags.Parse([]string{"--secret", "from-flag"}))

	cfg, meta, err := Load(opt, WithConfigFile(path), WithFlag("api_secret", flags.Lookup("secret")))
	require.NoError(t, err)

	assert.Equal(t, path, meta.File())
	assert.Equal(t, "from-flag", cfg.APISecret)
	assert.Equal(t, SourceFlag, meta.Source("api_secret"))
	assert.Equal(t, "127.0.0.1:9100", cfg.HTTP.Addr)
	assert.Equal(t, SourceEnv, meta.Source("http.addr"))
	assert.True(t, cfg.HTTP.EnableCORS)
	assert.Equal(t, SourceFile, meta.Source("http.enable_cors"))
	assert.Equal(t, 2*time.Minute, cfg.DownloadTimeout)
	assert.Equal(t, "./catalog.yaml", cfg.CatalogPath)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "zipkin", cfg.Tracing.Exporter)
}

func TestLoadUnchangedFlagKeepsDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("http", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, meta, err := Load(isolate(t), WithFlag("http.addr", flags.Lookup("http")), WithFlag("missing", nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
	assert.Equal(t, SourceDefault, meta.Source("http.addr"))
}

func TestLoadSearchesDirs(t *testing.T) {
	t.Setenv("CONVERTAPI_SECRET", "")
	dir := t.TempDir()
	path := writeConfig(t, dir, "api_secret: searched\n")

	cfg, meta, err := Load(WithSearchDirs(dir))
	require.NoError(t, err)
	assert.Equal(t, "searched", cfg.APISecret)
	assert.Equal(t, path, meta.File())
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := Load(isolate(t), WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
		assert.Error(t, err)
	})

	cases := map[string]string{
		"bad level":       "logging:\n  level: loud\n",
		"bad format":      "logging:\n  format: xml\n",
		"bad exporter":    "tracing:\n  enabled: true\n  exporter: jaeger\n",
		"bad sample rate": "tracing:\n  sample_rate: 2\n",
		"malformed yaml":  "http: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			opt := isolate(t)
			path := writeConfig(t, t.TempDir(), body)
			_, _, err := Load(opt, WithConfigFile(path))
			assert.Error(t, err)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{APISecret: "abcdefgh12345678"}
	assert.Equal(t, "abcdefgh...5678", cfg.Redacted().APISecret)
	assert.Equal(t, "abcdefgh12345678", cfg.APISecret)
}
