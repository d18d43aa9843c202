package convertapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{Secret: "secret-token", BaseURL: srv.URL}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresSecret(t *testing.T) {
	_, err := NewClient(Config{Secret: "  "})
	require.Error(t, err)
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client, err := NewClient(Config{Secret: "s"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.BaseURL())

	client, err = NewClient(Config{Secret: "s", BaseURL: "https://eu-v2.convertapi.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://eu-v2.convertapi.com/", client.BaseURL())

	_, err = NewClient(Config{Secret: "s", BaseURL: "not a url"})
	require.Error(t, err)
}

func TestConvertSendsMultipartRequest(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "report.docx")
	require.NoError(t, os.WriteFile(src, []byte("docx-bytes"), 0o644))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/convert/docx/to/pdf", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "1-3", r.FormValue("PageRange"))
		assert.Equal(t, "true", r.FormValue("StoreFile"))

		file, header, err := r.FormFile("File")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "report.docx", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "docx-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ConversionCost":1,"Files":[{"FileName":"report.pdf","FileExt":"pdf","FileSize":42,"FileId":"abc","Url":"https://files/report.pdf"}]}`))
	})

	result, err := client.Convert(context.Background(), "docx", "pdf", []Param{
		StringParam("PageRange", "1-3"),
		FileParam("File", src),
	})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, 1, result.ConversionCost)
	assert.Equal(t, File{FileName: "report.pdf", FileExt: "pdf", FileSize: 42, FileID: "abc", URL: "https://files/report.pdf"}, result.Files[0])
}

func TestConvertKeepsCallerStoreFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, []string{"false"}, r.MultipartForm.Value["StoreFile"])
		_, _ = w.Write([]byte(`{"Files":[]}`))
	})

	result, err := client.Convert(context.Background(), "html", "pdf", []Param{StringParam("StoreFile", "false")})
	require.NoError(t, err)
	assert.Empty(t, result.Files)
}

func TestConvertSurfacesProviderBody(t *testing.T) {
	body := `{"Code":4000,"Message":"Parameter validation error."}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	})

	_, err := client.Convert(context.Background(), "docx", "pdf", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, body, apiErr.Response)
}

func TestConvertMissingUploadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})

	_, err := client.Convert(context.Background(), "docx", "pdf", []Param{FileParam("File", filepath.Join(t.TempDir(), "missing.docx"))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestConvertEscapesFormats(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"Files":[]}`))
	})

	_, err := client.Convert(context.Background(), "web page", "pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "/convert/web%20page/to/pdf", gotPath)

	for _, format := range []string{"", ".", "..", "../../x", `a\b`} {
		_, err := client.Convert(context.Background(), format, "pdf", nil)
		assert.ErrorIs(t, err, ErrInvalidFormat, format)
	}
}

func TestConvertStreamsLargeUpload(t *testing.T) {
	src := filepath.Join(t.TempDir(), "big.bin")
	payload := bytes.Repeat([]byte("0123456789"), 512*1024)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(-1), r.ContentLength, "body is streamed without a precomputed length")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("File")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, len(payload), len(data))
		_, _ = w.Write([]byte(`{"Files":[]}`))
	})

	_, err := client.Convert(context.Background(), "bin", "zip", []Param{FileParam("File", src)})
	require.NoError(t, err)
}

func TestConvertHonoursCancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Files":[]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Convert(ctx, "docx", "pdf", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloaderStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 data"))
	}))
	defer srv.Close()

	d := NewDownloader(time.Second, 0, nil)
	defer d.Close()

	var buf bytes.Buffer
	n, err := d.Download(context.Background(), srv.URL+"/file.pdf", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	assert.Equal(t, "%PDF-1.7 data", buf.String())
}

func TestDownloaderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDownloader(time.Second, 0, nil)
	defer d.Close()

	_, err := d.Download(context.Background(), srv.URL+"/gone.pdf", io.Discard)
	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, http.StatusNotFound, dlErr.StatusCode)
}

func TestDownloaderEnforcesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
	}))
	defer srv.Close()

	d := NewDownloader(time.Second, 16, nil)
	defer d.Close()

	_, err := d.Download(context.Background(), srv.URL, io.Discard)
	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestDownloaderPassesWriteErrorsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	d := NewDownloader(time.Second, 0, nil)
	defer d.Close()

	_, err := d.Download(context.Background(), srv.URL, failingWriter{})
	require.EqualError(t, err, "disk full")
	var dlErr *DownloadError
	assert.False(t, errors.As(err, &dlErr))
}

func TestDownloaderRejectsBadURL(t *testing.T) {
	d := NewDownloader(time.Second, 0, nil)
	defer d.Close()

	_, err := d.Download(context.Background(), "ftp://example.com/x", io.Discard)
	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr))
}

func TestDownloaderDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewDownloader(time.Second, 0, nil)
	defer d.Close()

	_, err := d.Download(context.Background(), srv.URL, io.Discard)
	var dlErr *DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, http.StatusServiceUnavailable, dlErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}
