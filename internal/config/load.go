// Package config resolves the process configuration from defaults, an
// optional convertmcp.yaml, CONVERTAPI_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"convertmcp/internal/observability"
)

const (
	configName = "convertmcp"
	envPrefix  = "CONVERTAPI"
)

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	configFile string
	searchDirs []string
	flags      map[string]*pflag.Flag
}

// WithConfigFile reads exactly path instead of searching for convertmcp.yaml.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = strings.TrimSpace(path)
	}
}

// WithSearchDirs replaces the directories searched for convertmcp.yaml.
func WithSearchDirs(dirs ...string) Option {
	return func(o *loadOptions) {
		o.searchDirs = dirs
	}
}

// WithFlag binds a command line flag to key. The flag only wins when the
// user actually set it. A nil flag is ignored.
func WithFlag(key string, flag *pflag.Flag) Option {
	return func(o *loadOptions) {
		if flag == nil {
			return
		}
		if o.flags == nil {
			o.flags = map[string]*pflag.Flag{}
		}
		o.flags[key] = flag
	}
}

// envAliases are the variable names ConvertAPI tooling conventionally uses.
var envAliases = map[string][]string{
	"api_secret": {"CONVERTAPI_SECRET", "CONVERTAPI_API_SECRET"},
	"base_url":   {"CONVERTAPI_BASE_URI", "CONVERTAPI_BASE_URL"},
}

// Load builds the configuration.
func Load(opts ...Option) (Config, Metadata, error) {
	options := loadOptions{searchDirs: defaultSearchDirs()}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, Metadata{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	for key, flag := range options.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, Metadata{}, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	meta := Metadata{sources: map[string]ValueSource{}, loadedAt: time.Now()}
	file, err := readConfigFile(v, options)
	if err != nil {
		return Config{}, Metadata{}, err
	}
	meta.file = file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, Metadata{}, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, Metadata{}, err
	}

	for _, key := range v.AllKeys() {
		meta.sources[key] = sourceOf(v, key, options)
	}
	return cfg, meta, nil
}

func setDefaults(v *viper.Viper) {
	obs := observability.DefaultConfig()
	v.SetDefault("api_secret", "")
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("download_timeout", DefaultDownloadTimeout)
	v.SetDefault("max_download_bytes", DefaultMaxDownloadBytes)
	v.SetDefault("catalog_path", "")
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.enable_cors", false)
	v.SetDefault("logging.level", obs.Logging.Level)
	v.SetDefault("logging.format", obs.Logging.Format)
	v.SetDefault("metrics.enabled", obs.Metrics.Enabled)
	v.SetDefault("tracing.enabled", obs.Tracing.Enabled)
	v.SetDefault("tracing.exporter", obs.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", obs.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.zipkin_endpoint", obs.Tracing.ZipkinEndpoint)
	v.SetDefault("tracing.sample_rate", obs.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", obs.Tracing.ServiceName)
	v.SetDefault("tracing.service_version", obs.Tracing.ServiceVersion)
}

func defaultSearchDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".convertmcp"))
	}
	return dirs
}

// readConfigFile returns the path read. A missing file is only an error when
// it was named explicitly.
func readConfigFile(v *viper.Viper, opts loadOptions) (string, error) {
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", opts.configFile, err)
		}
		return v.ConfigFileUsed(), nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, dir := range opts.searchDirs {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

func normalize(cfg *Config) {
	cfg.APISecret = strings.TrimSpace(cfg.APISecret)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}
	cfg.CatalogPath = strings.TrimSpace(cfg.CatalogPath)
	cfg.HTTP.Addr = strings.TrimSpace(cfg.HTTP.Addr)
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Tracing.Exporter = strings.ToLower(strings.TrimSpace(cfg.Tracing.Exporter))
}

func validate(cfg Config) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: want debug, info, warn or error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q: want text or json", cfg.Logging.Format)
	}
	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "otlp", "zipkin":
		default:
			return fmt.Errorf("invalid tracing.exporter %q: want otlp or zipkin", cfg.Tracing.Exporter)
		}
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		return fmt.Errorf("invalid tracing.sample_rate %v: want 0.0 to 1.0", cfg.Tracing.SampleRate)
	}
	return nil
}

func sourceOf(v *viper.Viper, key string, opts loadOptions) ValueSource {
	if flag, ok := opts.flags[key]; ok && flag.Changed {
		return SourceFlag
	}
	names := envAliases[key]
	if len(names) == 0 {
		names = []string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	}
	for _, name := range names {
		if os.Getenv(name) != "" {
			return SourceEnv
		}
	}
	if v.InConfig(key) {
		return SourceFile
	}
	return SourceDefault
}
