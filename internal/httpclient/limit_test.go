package httpclient

import (
	"bytes"
	"testing"
)

func TestReadAllWithLimitWithinLimit(t *testing.T) {
	payload := []byte("hello")
	got, err := ReadAllWithLimit(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}

func TestReadAllWithLimitTooLarge(t *testing.T) {
	payload := []byte("hello")
	_, err := ReadAllWithLimit(bytes.NewReader(payload), 2)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsResponseTooLarge(err) {
		t.Fatalf("expected ResponseTooLargeError, got %v", err)
	}
}

func TestReadAllWithLimitUnlimited(t *testing.T) {
	payload := []byte("hello")
	got, err := ReadAllWithLimit(bytes.NewReader(payload), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}
}

func TestCopyWithLimit(t *testing.T) {
	var dst bytes.Buffer
	n, err := CopyWithLimit(&dst, bytes.NewReader([]byte("hello")), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 || dst.String() != "hello" {
		t.Fatalf("expected 5 bytes %q, got %d %q", "hello", n, dst.String())
	}

	dst.Reset()
	_, err = CopyWithLimit(&dst, bytes.NewReader([]byte("hello")), 3)
	if !IsResponseTooLarge(err) {
		t.Fatalf("expected ResponseTooLargeError, got %v", err)
	}
}

func TestNewAppliesDefaultTimeout(t *testing.T) {
	client := New(0, nil)
	if client.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout %v, got %v", defaultTimeout, client.Timeout)
	}
	if client.Transport == nil {
		t.Fatal("expected transport")
	}
}

func TestValidateDownloadURL(t *testing.T) {
	cases := map[string]bool{
		"https://v2.convertapi.com/d/abc/file.pdf": true,
		"http://127.0.0.1:8080/x.pdf":              true,
		"":                                         false,
		"ftp://example.com/x.pdf":                  false,
		"/relative/path.pdf":                       false,
		"https:///nohost":                          false,
	}
	for raw, ok := range cases {
		_, err := ValidateDownloadURL(raw)
		if ok && err != nil {
			t.Errorf("%q: unexpected error %v", raw, err)
		}
		if !ok && err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}
