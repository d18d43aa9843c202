// Package envelope builds the JSON documents every tool returns: a success
// envelope carrying an ordered list of strings, or a failure envelope
// carrying a message, a stable ErrorCode and optional details.
package envelope

import (
	"bytes"
	"fmt"
	"strings"

	"convertmcp/internal/jsonx"
)

// ErrorCode is a stable, machine-readable failure class.
type ErrorCode string

const (
	CodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	CodeOperationCancelled ErrorCode = "OPERATION_CANCELLED"
	CodeDirectoryError     ErrorCode = "DIRECTORY_ERROR"
	CodeFileNotFound       ErrorCode = "FILE_NOT_FOUND"
	CodeNoFilesReturned    ErrorCode = "NO_FILES_RETURNED"
	CodeAPIError           ErrorCode = "API_ERROR"
	CodeDownloadError      ErrorCode = "DOWNLOAD_ERROR"
	CodeFileWriteError     ErrorCode = "FILE_WRITE_ERROR"
	CodeOperationFailed    ErrorCode = "OPERATION_FAILED"
)

// Failure is the failure side of an Outcome.
type Failure struct {
	Message string
	Code    ErrorCode
	Details *string
}

// Error lets a Failure travel as an error value.
func (f *Failure) Error() string {
	if f.Details != nil && *f.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Code, f.Message, *f.Details)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Outcome is the result of one operation: either Files or Failure is set,
// never both.
type Outcome struct {
	Files   []string
	Failure *Failure
}

// Success returns a successful outcome over files.
func Success(files []string) Outcome {
	if files == nil {
		files = []string{}
	}
	return Outcome{Files: files}
}

// Fail returns a failed outcome. Only the first details value is used; an
// absent details value renders as null.
func Fail(code ErrorCode, message string, details ...string) Outcome {
	f := &Failure{Message: message, Code: code}
	if len(details) > 0 {
		d := details[0]
		f.Details = &d
	}
	return Outcome{Failure: f}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// JSON renders whichever side of the outcome is populated.
func (o Outcome) JSON() string {
	if o.Failure != nil {
		return buildError(o.Failure.Message, o.Failure.Code, o.Failure.Details)
	}
	return BuildSuccess(o.Files)
}

type errorBody struct {
	Error   bool      `json:"error"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
	Details *string   `json:"details"`
}

type successBody struct {
	Success bool     `json:"success"`
	Data    []string `json:"data"`
}

// BuildError renders {"error":true,"message":…,"code":…,"details":…}.
func BuildError(message string, code ErrorCode, details ...string) string {
	var d *string
	if len(details) > 0 {
		v := details[0]
		d = &v
	}
	return buildError(message, code, d)
}

func buildError(message string, code ErrorCode, details *string) string {
	return encode(errorBody{Error: true, Message: message, Code: code, Details: details})
}

// BuildSuccess renders {"success":true,"data":[…]}. A nil slice renders as [].
func BuildSuccess(data []string) string {
	if data == nil {
		data = []string{}
	}
	return encode(successBody{Success: true, Data: data})
}

func encode(v any) string {
	var buf bytes.Buffer
	enc := jsonx.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		// Both bodies are plain strings and bools; encoding cannot fail.
		panic(fmt.Sprintf("envelope: encode: %v", err))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Response is the parsed form of either envelope shape.
type Response struct {
	Success bool      `json:"success"`
	Data    []string  `json:"data"`
	Error   bool      `json:"error"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"code"`
	Details *string   `json:"details"`
}

// Parse decodes an envelope produced by BuildSuccess or BuildError.
func Parse(s string) (Response, error) {
	var resp Response
	if err := jsonx.Unmarshal([]byte(s), &resp); err != nil {
		return Response{}, fmt.Errorf("parse envelope: %w", err)
	}
	if resp.Success == resp.Error {
		return Response{}, fmt.Errorf("parse envelope: exactly one of success/error must be true")
	}
	return resp, nil
}
