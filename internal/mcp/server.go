package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"convertmcp/internal/jsonx"
	"convertmcp/internal/logging"
	"convertmcp/internal/observability"
	"convertmcp/internal/tools"
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// ToolService lists and runs tools.
type ToolService interface {
	List() []tools.Definition
	Call(ctx context.Context, name string, rawArgs []byte) (tools.Result, error)
}

// ServerInfo identifies the server during initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability indicates the server supports tools
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities represents what the server supports
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// InitializeResult answers initialize.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      ServerInfo `json:"clientInfo"`
}

type toolsCallParams struct {
	Name      string           `json:"name"`
	Arguments jsonx.RawMessage `json:"arguments,omitempty"`
}

type cancelledParams struct {
	RequestID any    `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

const instructions = "Call get_conversion_parameters before convert to learn which parameters a conversion accepts. " +
	"Use get_converters_by_tags or search_converters to discover available conversions."

// Server dispatches MCP requests to a ToolService. It is transport-agnostic
// and safe for concurrent use.
type Server struct {
	tools  ToolService
	info   ServerInfo
	logger logging.Logger
	tracer *observability.TracerProvider

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLogger overrides the component logger.
func WithLogger(logger logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logging.OrNop(logger)
	}
}

// WithTracer records one span per handled request.
func WithTracer(tracer *observability.TracerProvider) ServerOption {
	return func(s *Server) {
		s.tracer = tracer
	}
}

// NewServer builds a Server over svc.
func NewServer(svc ToolService, info ServerInfo, opts ...ServerOption) *Server {
	s := &Server{
		tools:    svc,
		info:     info,
		logger:   logging.NewComponentLogger("MCPServer"),
		inflight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage processes one raw JSON-RPC message. It returns nil for
// notifications, which get no response.
func (s *Server) HandleMessage(ctx context.Context, data []byte) *Response {
	req, err := UnmarshalRequest(data)
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = &RPCError{Code: InternalError, Message: err.Error()}
		}
		var id any
		if req != nil {
			if req.IsNotification() {
				return nil
			}
			id = req.ID
		}
		s.logger.Warn("rejecting message: %v", rpcErr)
		return &Response{JSONRPC: JSONRPCVersion, ID: id, Error: rpcErr}
	}
	return s.Handle(ctx, req)
}

// Handle processes one decoded request.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanRPCHandle,
		attribute.String(observability.AttrRPCMethod, req.Method))
	defer span.End()

	if req.IsNotification() {
		s.handleNotification(req)
		return nil
	}
	ctx = observability.ContextWithRequestID(ctx, fmt.Sprint(req.ID))

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return NewResponse(req.ID, map[string]any{})
	case "tools/list":
		return NewResponse(req.ID, map[string]any{"tools": s.tools.List()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return NewErrorResponse(req.ID, MethodNotFound, fmt.Sprintf("unknown method: %s", req.Method), nil)
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	var params initializeParams
	if hasParams(req.Params) {
		if err := jsonx.Unmarshal(req.Params, &params); err != nil {
			return NewErrorResponse(req.ID, InvalidParams, "invalid initialize params", err.Error())
		}
	}
	s.logger.Info("client %s %s connected (protocol %s)", params.ClientInfo.Name, params.ClientInfo.Version, params.ProtocolVersion)
	return NewResponse(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{ListChanged: false}},
		ServerInfo:      s.info,
		Instructions:    instructions,
	})
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params toolsCallParams
	if !hasParams(req.Params) {
		return NewErrorResponse(req.ID, InvalidParams, "missing params", nil)
	}
	if err := jsonx.Unmarshal(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, InvalidParams, "invalid tools/call params", err.Error())
	}
	if params.Name == "" {
		return NewErrorResponse(req.ID, InvalidParams, "tool name is required", nil)
	}

	logger := logging.WithContext(ctx, s.logger)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	key := idKey(req.ID)
	if !s.track(key, cancel) {
		logger.Warn("rejecting tools/call %s: request id %v is already in flight", params.Name, req.ID)
		return NewErrorResponse(req.ID, InvalidRequest, fmt.Sprintf("request id %v is already in flight", req.ID), nil)
	}
	defer s.untrack(key)

	logger.Debug("calling tool %s", params.Name)
	result, err := s.tools.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			return NewErrorResponse(req.ID, InvalidParams, fmt.Sprintf("unknown tool: %s", params.Name), nil)
		}
		logger.Error("tool %s failed: %v", params.Name, err)
		return NewErrorResponse(req.ID, InternalError, err.Error(), nil)
	}
	if result.IsError {
		logger.Info("tool %s returned an error result", params.Name)
	}
	return NewResponse(req.ID, result)
}

func (s *Server) handleNotification(req *Request) {
	switch req.Method {
	case "notifications/initialized":
		s.logger.Debug("client initialized")
	case "notifications/cancelled":
		var params cancelledParams
		if err := jsonx.Unmarshal(req.Params, &params); err != nil || params.RequestID == nil {
			return
		}
		if s.cancel(idKey(params.RequestID)) {
			s.logger.Info("request %v cancelled by client: %s", params.RequestID, params.Reason)
		}
	default:
		s.logger.Debug("ignoring notification %s", req.Method)
	}
}

func idKey(id any) string {
	return fmt.Sprintf("%T:%v", id, id)
}

// track registers an in-flight call. It reports false when the id is
// already taken, leaving the earlier call cancellable.
func (s *Server) track(key string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.inflight[key]; taken {
		return false
	}
	s.inflight[key] = cancel
	return true
}

func (s *Server) untrack(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

func (s *Server) cancel(key string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}
