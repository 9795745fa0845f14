// Package engine implements the protocol core of the MCP server: it accepts
// JSON-RPC messages from a connected transport, dispatches them against the
// configured server capabilities and produces response messages.
//
// An Engine is created per inbound request and is exclusively owned by that
// request's lifecycle. It holds no state that outlives the request: there is
// no session host, no broker and no cross-request correlation. Connect binds
// exactly one transport for the engine's lifetime and Close tears the engine
// down exactly once.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/poad/aws-lambda-mcp-server/internal/jsonrpc"
	"github.com/poad/aws-lambda-mcp-server/mcp"
	"github.com/poad/aws-lambda-mcp-server/mcpservice"
)

var (
	// ErrAlreadyConnected is returned by Connect when a transport is already bound.
	ErrAlreadyConnected = errors.New("engine: transport already connected")
	// ErrClosed is returned when the engine is used, or closed, after Close.
	ErrClosed = errors.New("engine: closed")
)

// Handler consumes inbound JSON-RPC messages delivered by a Transport. The
// returned response is nil for notifications and ignored client responses.
type Handler interface {
	HandleMessage(ctx context.Context, msg *jsonrpc.AnyMessage) (*jsonrpc.Response, error)
}

// Transport is the engine-facing half of a wire transport. Connect binds the
// engine's message handler to the transport; the transport delivers each
// decoded inbound message to the handler and carries the response back to
// the wire.
type Transport interface {
	// Bind attaches the inbound message handler. A transport accepts exactly
	// one bind for its lifetime.
	Bind(h Handler) error
	Close(ctx context.Context) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the slog logger used by the engine. If not provided, the
// default logger is used.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine dispatches MCP requests against server capabilities. The zero value
// is not usable; construct with NewEngine.
type Engine struct {
	id   string
	caps mcpservice.ServerCapabilities
	log  *slog.Logger

	mu        sync.Mutex
	transport Transport
	closed    bool
}

var _ Handler = (*Engine)(nil)

// NewEngine constructs a fresh engine over the provided server capabilities.
func NewEngine(caps mcpservice.ServerCapabilities, opts ...Option) *Engine {
	e := &Engine{
		id:   uuid.NewString(),
		caps: caps,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the engine's unique identity, used for log correlation.
func (e *Engine) ID() string { return e.id }

// Connect binds the engine to a transport. It verifies the capability set is
// resolvable so that misconfiguration surfaces here rather than midway
// through request handling.
func (e *Engine) Connect(ctx context.Context, t Transport) error {
	if t == nil {
		return fmt.Errorf("engine: transport is required")
	}
	if e.caps == nil {
		return fmt.Errorf("engine: server capabilities are required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.transport != nil {
		return ErrAlreadyConnected
	}

	if _, err := e.caps.GetServerInfo(ctx); err != nil {
		return fmt.Errorf("engine: resolve server info: %w", err)
	}
	if _, _, err := e.caps.GetToolsCapability(ctx); err != nil {
		return fmt.Errorf("engine: resolve tools capability: %w", err)
	}

	if err := t.Bind(e); err != nil {
		return fmt.Errorf("engine: bind transport: %w", err)
	}
	e.transport = t
	e.log.DebugContext(ctx, "engine.connect.ok", slog.String("engine_id", e.id))
	return nil
}

// Close tears the engine down. It does not close the bound transport; the
// caller owns both resources and closes them independently. Closing twice is
// an error so that double-teardown bugs surface in logs.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	e.transport = nil
	e.log.DebugContext(ctx, "engine.close.ok", slog.String("engine_id", e.id))
	return nil
}

// HandleMessage implements Handler. Notifications and client responses yield
// a nil response; requests yield either a result or a JSON-RPC error
// response. A non-nil error indicates an engine-internal failure that the
// transport cannot answer on its own.
func (e *Engine) HandleMessage(ctx context.Context, msg *jsonrpc.AnyMessage) (*jsonrpc.Response, error) {
	e.mu.Lock()
	closed := e.closed
	connected := e.transport != nil
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if !connected {
		return nil, fmt.Errorf("engine: not connected")
	}

	if res := msg.AsResponse(); res != nil {
		// No outbound server->client requests exist in the stateless model,
		// so there is nothing to correlate the response with.
		e.log.DebugContext(ctx, "rpc.response.ignored", slog.String("id", res.ID.String()))
		return nil, nil
	}

	req := msg.AsRequest()
	if req.ID.IsNil() {
		return nil, e.handleNotification(ctx, req)
	}
	return e.handleRequest(ctx, req)
}

func (e *Engine) handleNotification(ctx context.Context, req *jsonrpc.Request) error {
	switch mcp.Method(req.Method) {
	case mcp.InitializedNotificationMethod, mcp.CancelledNotificationMethod:
		return nil
	default:
		e.log.DebugContext(ctx, "rpc.notification.ignored", slog.String("method", req.Method))
		return nil
	}
}

func (e *Engine) handleRequest(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		return e.handleInitialize(ctx, req)
	case mcp.PingMethod:
		return jsonrpc.NewResultResponse(req.ID, struct{}{})
	case mcp.ToolsListMethod:
		return e.handleToolsList(ctx, req)
	case mcp.ToolsCallMethod:
		return e.handleToolsCall(ctx, req)
	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil), nil
	}
}

func (e *Engine) handleInitialize(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	var initReq mcp.InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &initReq); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid initialize params", nil), nil
		}
	}

	version, ok, err := e.caps.GetPreferredProtocolVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve protocol version: %w", err)
	}
	if !ok {
		version = initReq.ProtocolVersion
	}
	if version == "" {
		version = mcp.LatestProtocolVersion
	}

	info, err := e.caps.GetServerInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve server info: %w", err)
	}

	var serverCaps mcp.ServerCapabilities
	if _, ok, err := e.caps.GetToolsCapability(ctx); err != nil {
		return nil, fmt.Errorf("engine: resolve tools capability: %w", err)
	} else if ok {
		serverCaps.Tools = &struct {
			ListChanged bool `json:"listChanged"`
		}{ListChanged: false}
	}

	res := mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    serverCaps,
		ServerInfo:      info,
	}
	if instr, ok, err := e.caps.GetInstructions(ctx); err != nil {
		return nil, fmt.Errorf("engine: resolve instructions: %w", err)
	} else if ok {
		res.Instructions = instr
	}

	e.log.DebugContext(ctx, "rpc.initialize.ok", slog.String("protocol_version", version))
	return jsonrpc.NewResultResponse(req.ID, res)
}

func (e *Engine) handleToolsList(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	tools, ok, err := e.caps.GetToolsCapability(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve tools capability: %w", err)
	}
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools not supported", nil), nil
	}

	var listReq mcp.ListToolsRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &listReq); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid tools/list params", nil), nil
		}
	}
	var cursor *string
	if listReq.Cursor != "" {
		cursor = &listReq.Cursor
	}

	page, err := tools.ListTools(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("engine: list tools: %w", err)
	}

	res := mcp.ListToolsResult{Tools: page.Items}
	if page.NextCursor != nil {
		res.NextCursor = *page.NextCursor
	}
	return jsonrpc.NewResultResponse(req.ID, res)
}

func (e *Engine) handleToolsCall(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	tools, ok, err := e.caps.GetToolsCapability(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve tools capability: %w", err)
	}
	if !ok {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools not supported", nil), nil
	}

	var callReq mcp.CallToolRequestReceived
	if err := json.Unmarshal(req.Params, &callReq); err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid tools/call params", nil), nil
	}

	res, err := tools.CallTool(ctx, &callReq)
	if err != nil {
		e.log.DebugContext(ctx, "tool.call.fail", slog.String("tool", callReq.Name), slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, err.Error(), nil), nil
	}
	return jsonrpc.NewResultResponse(req.ID, res)
}
