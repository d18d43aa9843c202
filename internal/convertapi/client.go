// Package convertapi is a small REST client for a ConvertAPI-compatible
// conversion service.
package convertapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"convertmcp/internal/httpclient"
	"convertmcp/internal/jsonx"
	"convertmcp/internal/logging"
)

// DefaultBaseURL is used when no alternate endpoint is configured.
const DefaultBaseURL = "https://v2.convertapi.com/"

const (
	defaultTimeout      = 10 * time.Minute
	maxResponseBodySize = 4 << 20
)

// Param is one outbound conversion parameter: either an inline string value
// or a reference to a local file that is uploaded with the request.
type Param struct {
	Name     string
	Value    string
	FilePath string
}

// IsFile reports whether the parameter uploads a local file.
func (p Param) IsFile() bool {
	return p.FilePath != ""
}

// StringParam builds an inline parameter.
func StringParam(name, value string) Param {
	return Param{Name: name, Value: value}
}

// FileParam builds a local-file parameter.
func FileParam(name, path string) Param {
	return Param{Name: name, FilePath: path}
}

// File is one result file reported by the service.
type File struct {
	FileName string `json:"FileName"`
	FileExt  string `json:"FileExt"`
	FileSize int64  `json:"FileSize"`
	FileID   string `json:"FileId"`
	URL      string `json:"Url"`
}

// Result is the decoded body of a successful conversion.
type Result struct {
	ConversionCost int    `json:"ConversionCost"`
	Files          []File `json:"Files"`
}

// Config configures the client.
type Config struct {
	Secret  string
	BaseURL string
	Timeout time.Duration
}

// Client calls the conversion endpoint. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	secret     string
	baseURL    *url.URL
	httpClient *http.Client
	logger     logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for conversion calls.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(client *Client) {
		client.logger = logging.OrNop(logger)
	}
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("convertapi: secret cannot be empty")
	}

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("convertapi: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		secret:  cfg.Secret,
		baseURL: base,
		logger:  logging.NewComponentLogger("ConvertAPI"),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = httpclient.New(timeout, client.logger)
	}
	return client, nil
}

// BaseURL returns the resolved service endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ErrInvalidFormat reports a format that cannot be used as one path segment
// of the conversion endpoint.
var ErrInvalidFormat = errors.New("convertapi: invalid format")

// Convert runs one conversion. from and to are used as given; callers
// normalize case. A non-2xx response yields *APIError carrying the body.
// Uploaded files are streamed, so none is held in memory.
func (c *Client) Convert(ctx context.Context, from, to string, params []Param) (*Result, error) {
	endpoint, err := c.endpoint(from, to)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeMultipart(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		_ = body.Close()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("POST %s (%d params)", endpoint.Redacted(), len(params))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("convert request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := httpclient.ReadAllWithLimit(resp.Body, maxResponseBodySize)
	if err != nil {
		return nil, fmt.Errorf("read convert response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Response: string(data)}
	}

	var result Result
	if err := jsonx.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode convert response: %w", err)
	}
	return &result, nil
}

// endpoint resolves convert/{from}/to/{to} below the base URL. Each format
// must stay a single path segment.
func (c *Client) endpoint(from, to string) (*url.URL, error) {
	for _, format := range []string{from, to} {
		if format == "" || format == "." || format == ".." || strings.ContainsAny(format, `/\`) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
		}
	}
	return c.baseURL.JoinPath("convert", url.PathEscape(from), "to", url.PathEscape(to)), nil
}

// encodeMultipart streams params in order, followed by StoreFile=true so the
// service answers with download URLs rather than inline file data. Upload
// files are opened up front so a missing file fails before anything is sent.
func encodeMultipart(params []Param) (io.ReadCloser, string, error) {
	files := make(map[int]*os.File)
	closeFiles := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for i, p := range params {
		if !p.IsFile() {
			continue
		}
		f, err := os.Open(p.FilePath)
		if err != nil {
			closeFiles()
			return nil, "", fmt.Errorf("open file for %q: %w", p.Name, err)
		}
		files[i] = f
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer closeFiles()
		_ = pw.CloseWithError(writeParts(writer, params, files))
	}()
	return pr, writer.FormDataContentType(), nil
}

func writeParts(writer *multipart.Writer, params []Param, files map[int]*os.File) error {
	storeFileSet := false
	for i, p := range params {
		if p.IsFile() {
			part, err := writer.CreateFormFile(p.Name, filepath.Base(p.FilePath))
			if err != nil {
				return fmt.Errorf("create file part %q: %w", p.Name, err)
			}
			if _, err := io.Copy(part, files[i]); err != nil {
				return fmt.Errorf("copy file for %q: %w", p.Name, err)
			}
			continue
		}
		if strings.EqualFold(p.Name, "StoreFile") {
			storeFileSet = true
		}
		if err := writer.WriteField(p.Name, p.Value); err != nil {
			return fmt.Errorf("write field %q: %w", p.Name, err)
		}
	}
	if !storeFileSet {
		if err := writer.WriteField("StoreFile", "true"); err != nil {
			return fmt.Errorf("write field StoreFile: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}
	return nil
}
