package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"convertmcp/internal/logging"
)

const defaultTimeout = 30 * time.Second

// New returns an http.Client configured for outbound requests.
//
// It respects HTTP(S)_PROXY/NO_PROXY. A non-positive timeout falls back to 30s.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(logger),
	}
}

// Transport returns an http.Transport clone with the environment proxy policy.
func Transport(logger logging.Logger) *http.Transport {
	log := logging.OrNop(logger)

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		log.Debug("default transport is %T; using a fresh transport", http.DefaultTransport)
		return &http.Transport{Proxy: http.ProxyFromEnvironment}
	}

	transport := base.Clone()
	transport.Proxy = http.ProxyFromEnvironment
	return transport
}

// ValidateDownloadURL checks that raw is an absolute http(s) URL with a host.
func ValidateDownloadURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme: %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("url host is required")
	}
	return parsed, nil
}
