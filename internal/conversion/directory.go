package conversion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"convertmcp/internal/convertapi"
	"convertmcp/internal/envelope"
	"convertmcp/internal/logging"
	"convertmcp/internal/observability"
)

// OutputDirName is the folder created next to the first input file when the
// caller does not choose an output directory.
const OutputDirName = "converted_output"

// DefaultOutputDirectory picks <dir of first existing file parameter>/converted_output,
// falling back to the working directory. File parameters are considered in
// key order.
func DefaultOutputDirectory(fileParams map[string]string) string {
	for _, key := range sortedKeys(fileParams) {
		path := fileParams[key]
		if strings.TrimSpace(path) == "" || !regularFileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return filepath.Join(filepath.Dir(path), OutputDirName)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return filepath.Join(cwd, OutputDirName)
}

type directorySink struct {
	dir           string
	newDownloader func() Downloader
	logger        logging.Logger
	metrics       *observability.MetricsCollector
	tracer        *observability.TracerProvider
}

func (d *directorySink) operation() string { return "directory" }

func (d *directorySink) validate() *envelope.Outcome {
	if strings.TrimSpace(d.dir) == "" {
		d.logger.Error("Output directory is required.")
		failed := envelope.Fail(envelope.CodeInvalidArgument, "Output directory is required.", "outputDirectory parameter cannot be null or empty.")
		return &failed
	}
	return nil
}

func (d *directorySink) prepare(context.Context) *envelope.Outcome {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.logger.Error("Failed to create output directory %s: %v", d.dir, err)
		failed := envelope.Fail(envelope.CodeDirectoryError, "Failed to create output directory.",
			fmt.Sprintf("Unable to create directory '%s': %v", d.dir, err))
		return &failed
	}
	return nil
}

// deliver downloads files one at a time in the order the service returned
// them. Files written before a failure stay on disk.
func (d *directorySink) deliver(ctx context.Context, files []convertapi.File) envelope.Outcome {
	d.logger = logging.WithContext(ctx, d.logger)
	downloader := d.newDownloader()
	defer downloader.Close()

	saved := make([]string, 0, len(files))
	taken := make(map[string]bool, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("Conversion operation was cancelled.")
			return envelope.Fail(envelope.CodeOperationCancelled, "Conversion operation was cancelled.", err.Error())
		}

		name := uniqueName(localFileName(f, i), taken)
		target := filepath.Join(d.dir, name)
		d.logger.Info("Downloading file: %s", name)

		if failed := d.save(ctx, downloader, f, name, target); failed != nil {
			return *failed
		}
		saved = append(saved, target)
	}
	return envelope.Success(saved)
}

func (d *directorySink) save(ctx context.Context, downloader Downloader, f convertapi.File, name, target string) (failed *envelope.Outcome) {
	ctx, span := d.tracer.StartSpan(ctx, observability.SpanDownload,
		attribute.String(observability.AttrFileName, name))
	defer func() {
		if failed != nil {
			span.SetStatus(codes.Error, failed.Failure.Message)
			span.SetAttributes(attribute.String(observability.AttrCode, string(failed.Failure.Code)))
		}
		span.End()
	}()

	tmp, err := os.CreateTemp(d.dir, "."+name+".*.part")
	if err != nil {
		return d.writeFailure(name, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := downloader.Download(ctx, f.URL, tmp)
	closeErr := tmp.Close()
	if err != nil {
		out := d.downloadFailure(ctx, name, err)
		return &out
	}
	if closeErr != nil {
		return d.writeFailure(name, closeErr)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return d.writeFailure(name, err)
	}
	committed = true
	d.metrics.RecordDownload(ctx, n)
	return nil
}

func (d *directorySink) downloadFailure(ctx context.Context, name string, err error) envelope.Outcome {
	if isCancellation(ctx, err) {
		d.logger.Warn("Conversion operation was cancelled.")
		return envelope.Fail(envelope.CodeOperationCancelled, "Conversion operation was cancelled.", err.Error())
	}
	var dlErr *convertapi.DownloadError
	if errors.As(err, &dlErr) {
		d.logger.Error("Failed to download file %s: %v", name, err)
		return envelope.Fail(envelope.CodeDownloadError, fmt.Sprintf("Failed to download file '%s'.", name), err.Error())
	}
	d.logger.Error("Failed to save file %s: %v", name, err)
	return envelope.Fail(envelope.CodeFileWriteError, fmt.Sprintf("Failed to save file '%s'.", name), err.Error())
}

func (d *directorySink) writeFailure(name string, err error) *envelope.Outcome {
	d.logger.Error("Failed to save file %s: %v", name, err)
	failed := envelope.Fail(envelope.CodeFileWriteError, fmt.Sprintf("Failed to save file '%s'.", name), err.Error())
	return &failed
}

// localFileName keeps only the base name reported by the service so results
// cannot escape the output directory.
func localFileName(f convertapi.File, index int) string {
	name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(f.FileName, `\`, "/")))
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		ext := strings.TrimPrefix(f.FileExt, ".")
		if ext == "" {
			ext = "bin"
		}
		name = fmt.Sprintf("result_%d.%s", index+1, ext)
	}
	return name
}

// uniqueName suffixes name when an earlier file of the same request already
// claimed it. Names compare case-insensitively.
func uniqueName(name string, taken map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; taken[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	taken[strings.ToLower(candidate)] = true
	return candidate
}
