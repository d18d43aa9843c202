// Package conversion drives one conversion through the remote service and
// maps every failure onto a single envelope.ErrorCode.
package conversion

import (
	"context"
	"io"
	"time"

	"convertmcp/internal/convertapi"
	"convertmcp/internal/envelope"
	"convertmcp/internal/logging"
	"convertmcp/internal/observability"
)

// Converter is the remote conversion capability.
type Converter interface {
	Convert(ctx context.Context, from, to string, params []convertapi.Param) (*convertapi.Result, error)
}

// Downloader fetches one result file into w. It lives for a single request.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
	Close()
}

// Request asks for a conversion whose results stay on the remote service.
type Request struct {
	SourceFormat string
	TargetFormat string
	Parameters   map[string]string
}

// DirectoryRequest asks for a conversion whose results are downloaded into
// OutputDirectory. FileParameters map parameter names to local files that
// are uploaded with the request.
type DirectoryRequest struct {
	SourceFormat    string
	TargetFormat    string
	OutputDirectory string
	Parameters      map[string]string
	FileParameters  map[string]string
}

// Service runs conversions. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	converter     Converter
	newDownloader func() Downloader
	logger        logging.Logger
	metrics       *observability.MetricsCollector
	tracer        *observability.TracerProvider
}

// Option customizes a Service.
type Option func(*Service)

// WithDownloaderFactory sets how the per-request download handle is built.
func WithDownloaderFactory(factory func() Downloader) Option {
	return func(s *Service) {
		if factory != nil {
			s.newDownloader = factory
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

// WithMetrics records conversion metrics.
func WithMetrics(metrics *observability.MetricsCollector) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithTracer records one span per conversion.
func WithTracer(tracer *observability.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// NewService builds a Service over converter.
func NewService(converter Converter, opts ...Option) *Service {
	s := &Service{
		converter: converter,
		logger:    logging.NewComponentLogger("ConvertService"),
		newDownloader: func() Downloader {
			return convertapi.NewDownloader(0, 0, nil)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConvertToURLs converts and returns the remote result URLs unmodified.
func (s *Service) ConvertToURLs(ctx context.Context, req Request) envelope.Outcome {
	return s.run(ctx, job{
		from:   req.SourceFormat,
		to:     req.TargetFormat,
		params: req.Parameters,
	}, urlSink{})
}

// ConvertToDirectory converts, downloads every result file sequentially into
// req.OutputDirectory and returns the local paths. The first download or
// write failure ends the request; files already saved are kept.
func (s *Service) ConvertToDirectory(ctx context.Context, req DirectoryRequest) envelope.Outcome {
	return s.run(ctx, job{
		from:       req.SourceFormat,
		to:         req.TargetFormat,
		params:     req.Parameters,
		fileParams: req.FileParameters,
	}, &directorySink{
		dir:           req.OutputDirectory,
		newDownloader: s.newDownloader,
		logger:        s.logger,
		metrics:       s.metrics,
		tracer:        s.tracer,
	})
}

func (s *Service) record(ctx context.Context, operation string, started time.Time, out envelope.Outcome) {
	code := "OK"
	if out.Failure != nil {
		code = string(out.Failure.Code)
	}
	s.metrics.RecordConversion(ctx, operation, code, time.Since(started))
}

// Ensure the concrete client satisfies the capability interface.
var _ Converter = (*convertapi.Client)(nil)
var _ Downloader = (*convertapi.Downloader)(nil)
