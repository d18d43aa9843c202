package convertapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"convertmcp/internal/httpclient"
	"convertmcp/internal/logging"
)

// Downloader fetches result files. One Downloader serves one request and must
// be closed when the request ends.
type Downloader struct {
	client   *http.Client
	maxBytes int64
	logger   logging.Logger
}

// NewDownloader builds a downloader. maxBytes <= 0 disables the size limit.
func NewDownloader(timeout time.Duration, maxBytes int64, logger logging.Logger) *Downloader {
	logger = logging.OrNop(logger)
	return &Downloader{
		client:   httpclient.New(timeout, logger),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Download streams the file at rawURL into w and returns the byte count.
// HTTP and read failures come back as *DownloadError; failures returned by w
// are passed through unwrapped so callers can tell them apart.
func (d *Downloader) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	parsed, err := httpclient.ValidateDownloadURL(rawURL)
	if err != nil {
		return 0, &DownloadError{URL: rawURL, Err: err}
	}

	// One attempt only: a failed download ends the request.
	resp, err := d.open(ctx, parsed.String(), rawURL)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	sink := &writeTracker{w: w}
	n, err := httpclient.CopyWithLimit(sink, resp.Body, d.maxBytes)
	if err != nil {
		if sink.err != nil {
			return n, sink.err
		}
		return n, &DownloadError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	d.logger.Debug("downloaded %d bytes from %s", n, parsed.Redacted())
	return n, nil
}

// open issues the GET and checks the status.
func (d *Downloader) open(ctx context.Context, target, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, &DownloadError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// Close releases idle connections held by the downloader.
func (d *Downloader) Close() {
	d.client.CloseIdleConnections()
}

type writeTracker struct {
	w   io.Writer
	err error
}

func (t *writeTracker) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
