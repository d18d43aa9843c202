package convertapi

import "fmt"

// APIError is a non-2xx answer from the conversion endpoint. Response holds
// the provider body verbatim.
type APIError struct {
	StatusCode int
	Response   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("convertapi: status %d: %s", e.StatusCode, e.Response)
}

// DownloadError reports a failed result-file download.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
