package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"convertmcp/internal/envelope"
	"convertmcp/internal/logging"
	"convertmcp/internal/observability"
)

// Registry holds tools in registration order and dispatches calls to them.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	byName  map[string]Tool
	logger  logging.Logger
	metrics *observability.MetricsCollector
	tracer  *observability.TracerProvider
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger overrides the component logger.
func WithRegistryLogger(logger logging.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logging.OrNop(logger)
	}
}

// WithRegistryMetrics records one sample per tool call.
func WithRegistryMetrics(metrics *observability.MetricsCollector) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// WithRegistryTracer records one span per tool call.
func WithRegistryTracer(tracer *observability.TracerProvider) RegistryOption {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName: make(map[string]Tool),
		logger: logging.NewComponentLogger("ToolRegistry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	r.byName[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[name]
	return tool, ok
}

// List returns every definition in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.byName[name].Definition())
	}
	return defs
}

// Call decodes raw arguments and runs the named tool. Only an unknown tool
// yields an error; every other failure is carried in the Result.
func (r *Registry) Call(ctx context.Context, name string, rawArgs []byte) (Result, error) {
	tool, ok := r.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	started := time.Now()
	ctx, span := r.tracer.StartSpan(ctx, observability.SpanToolCall, observability.ToolAttrs(name)...)
	defer span.End()

	args, err := DecodeArguments(rawArgs)
	var result Result
	if err != nil {
		result = textResult(envelope.BuildError("Invalid tool arguments.", envelope.CodeInvalidArgument, err.Error()), true)
	} else {
		result = tool.Execute(ctx, args)
	}

	status := "success"
	if result.IsError {
		status = "error"
		span.SetStatus(codes.Error, "tool returned an error result")
	}
	span.SetAttributes(attribute.Bool("convertmcp.tool.is_error", result.IsError))
	r.metrics.RecordToolCall(ctx, name, status, time.Since(started))
	r.logger.Debug("tool %s finished in %s (%s)", name, time.Since(started), status)
	return result, nil
}
