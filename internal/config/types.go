package config

import (
	"errors"
	"strings"
	"time"

	"convertmcp/internal/observability"
)

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceFile    ValueSource = "file"
	SourceEnv     ValueSource = "environment"
	SourceFlag    ValueSource = "flag"
)

const (
	DefaultBaseURL          = "https://v2.convertapi.com/"
	DefaultRequestTimeout   = 10 * time.Minute
	DefaultDownloadTimeout  = 5 * time.Minute
	DefaultMaxDownloadBytes = int64(1 << 30)
	DefaultHTTPAddr         = "127.0.0.1:8765"
)

// ErrMissingSecret is returned by RequireSecret when no ConvertAPI credential
// is configured.
var ErrMissingSecret = errors.New("ConvertAPI secret is not configured: set CONVERTAPI_SECRET or api_secret in convertmcp.yaml")

// Config is the resolved process configuration.
type Config struct {
	APISecret        string        `mapstructure:"api_secret" yaml:"api_secret"`
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	DownloadTimeout  time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
	MaxDownloadBytes int64         `mapstructure:"max_download_bytes" yaml:"max_download_bytes"`
	CatalogPath      string        `mapstructure:"catalog_path" yaml:"catalog_path"`
	HTTP             HTTPConfig    `mapstructure:"http" yaml:"http"`

	observability.Config `mapstructure:",squash" yaml:",inline"`
}

// HTTPConfig configures the optional HTTP transport.
type HTTPConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	EnableCORS bool   `mapstructure:"enable_cors" yaml:"enable_cors"`
}

// RequireSecret fails when the conversion path cannot authenticate.
func (c Config) RequireSecret() error {
	if strings.TrimSpace(c.APISecret) == "" {
		return ErrMissingSecret
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.APISecret = observability.SanitizeAPIKey(c.APISecret)
	return c
}

// Metadata contains provenance details for loaded configuration.
type Metadata struct {
	sources  map[string]ValueSource
	file     string
	loadedAt time.Time
}

// Source returns the origin for the given configuration key.
func (m Metadata) Source(key string) ValueSource {
	if src, ok := m.sources[key]; ok {
		return src
	}
	return SourceDefault
}

// File is the config file that was read, or "" when none was found.
func (m Metadata) File() string {
	return m.file
}

// LoadedAt returns the timestamp when the configuration was constructed.
func (m Metadata) LoadedAt() time.Time {
	return m.loadedAt
}
