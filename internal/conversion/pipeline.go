package conversion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"convertmcp/internal/convertapi"
	"convertmcp/internal/envelope"
	"convertmcp/internal/logging"
	"convertmcp/internal/observability"
)

type job struct {
	from       string
	to         string
	params     map[string]string
	fileParams map[string]string
}

// sink decides what happens to the files the service returns.
type sink interface {
	operation() string
	// validate runs after the format checks and before any side effect.
	validate() *envelope.Outcome
	// prepare runs after the entry cancellation check.
	prepare(ctx context.Context) *envelope.Outcome
	deliver(ctx context.Context, files []convertapi.File) envelope.Outcome
}

func (s *Service) run(ctx context.Context, j job, sk sink) (out envelope.Outcome) {
	started := time.Now()
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanConvert,
		observability.ConversionAttrs(sk.operation(), j.from, j.to)...)
	log := logging.WithContext(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Unexpected panic during conversion from %s to %s: %v", j.from, j.to, r)
			out = envelope.Fail(envelope.CodeOperationFailed, "Conversion operation failed.", fmt.Sprint(r))
		}
		if out.Failure != nil {
			span.SetStatus(codes.Error, out.Failure.Message)
			span.SetAttributes(attribute.String(observability.AttrCode, string(out.Failure.Code)))
		} else {
			span.SetAttributes(attribute.Int(observability.AttrFileCount, len(out.Files)))
		}
		span.End()
		s.record(ctx, sk.operation(), started, out)
	}()

	if strings.TrimSpace(j.from) == "" {
		log.Error("Source format is required.")
		return envelope.Fail(envelope.CodeInvalidArgument, "Source format is required.", "fromFormat parameter cannot be null or empty.")
	}
	if strings.TrimSpace(j.to) == "" {
		log.Error("Target format is required.")
		return envelope.Fail(envelope.CodeInvalidArgument, "Target format is required.", "toFormat parameter cannot be null or empty.")
	}
	if failed := sk.validate(); failed != nil {
		return *failed
	}

	if err := ctx.Err(); err != nil {
		return cancelled(log, err)
	}

	if failed := sk.prepare(ctx); failed != nil {
		return *failed
	}

	from := strings.ToLower(strings.TrimSpace(j.from))
	to := strings.ToLower(strings.TrimSpace(j.to))
	log.Info("Converting from %s to %s", from, to)

	params, failed := s.assemble(j, log)
	if failed != nil {
		return *failed
	}

	if err := ctx.Err(); err != nil {
		return cancelled(log, err)
	}

	result, err := s.converter.Convert(ctx, from, to, params)
	if err != nil {
		return s.mapConvertError(ctx, log, err, from, to)
	}

	if result == nil || len(result.Files) == 0 {
		log.Error("No files returned from ConvertAPI.")
		return envelope.Fail(envelope.CodeNoFilesReturned, "No files returned from ConvertAPI.", "The conversion completed but did not produce any output files.")
	}

	out = sk.deliver(ctx, result.Files)
	if out.OK() {
		log.Info("Conversion completed successfully. %d file(s) produced.", len(out.Files))
	}
	return out
}

// assemble builds the outbound parameter list: string parameters then file
// parameters, each in key order. Blank keys are dropped. A file parameter
// naming a missing file fails the request before anything is sent.
func (s *Service) assemble(j job, log logging.Logger) ([]convertapi.Param, *envelope.Outcome) {
	out := make([]convertapi.Param, 0, len(j.params)+len(j.fileParams))

	for _, key := range sortedKeys(j.params) {
		if strings.TrimSpace(key) == "" {
			continue
		}
		value := j.params[key]
		out = append(out, convertapi.StringParam(key, value))
		log.Debug("Added parameter: %s = %s", key, value)
	}

	for _, key := range sortedKeys(j.fileParams) {
		path := j.fileParams[key]
		if strings.TrimSpace(key) == "" || strings.TrimSpace(path) == "" {
			continue
		}
		if !regularFileExists(path) {
			log.Error("File not found for parameter '%s': %s", key, path)
			failed := envelope.Fail(envelope.CodeFileNotFound,
				fmt.Sprintf("File for parameter '%s' not found.", key),
				fmt.Sprintf("The file '%s' does not exist.", path))
			return nil, &failed
		}
		out = append(out, convertapi.FileParam(key, path))
		log.Debug("Added file parameter: %s = %s", key, path)
	}

	return out, nil
}

func (s *Service) mapConvertError(ctx context.Context, log logging.Logger, err error, from, to string) envelope.Outcome {
	if isCancellation(ctx, err) {
		return cancelled(log, err)
	}

	if errors.Is(err, convertapi.ErrInvalidFormat) {
		log.Error("Rejected format pair %s to %s: %v", from, to, err)
		return envelope.Fail(envelope.CodeInvalidArgument, "Invalid conversion format.", err.Error())
	}

	var apiErr *convertapi.APIError
	if errors.As(err, &apiErr) {
		log.Error("ConvertAPI error occurred during conversion from %s to %s: status %d", from, to, apiErr.StatusCode)
		return envelope.Fail(envelope.CodeAPIError, "ConvertAPI service error occurred.", apiErr.Response)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		log.Error("Unexpected error during conversion from %s to %s: %v", from, to, err)
		return envelope.Fail(envelope.CodeOperationFailed, "Conversion operation failed.", err.Error())
	}

	log.Error("ConvertAPI request failed during conversion from %s to %s: %v", from, to, err)
	return envelope.Fail(envelope.CodeAPIError, "ConvertAPI service error occurred.", err.Error())
}

func cancelled(log logging.Logger, err error) envelope.Outcome {
	log.Warn("Conversion operation was cancelled.")
	return envelope.Fail(envelope.CodeOperationCancelled, "Conversion operation was cancelled.", err.Error())
}

func isCancellation(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx.Err() != nil
}

func regularFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type urlSink struct{}

func (urlSink) operation() string { return "urls" }

func (urlSink) validate() *envelope.Outcome { return nil }

func (urlSink) prepare(context.Context) *envelope.Outcome { return nil }

func (urlSink) deliver(_ context.Context, files []convertapi.File) envelope.Outcome {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		urls = append(urls, f.URL)
	}
	return envelope.Success(urls)
}
