package statelesshttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/elnormous/contenttype"
	"github.com/poad/aws-lambda-mcp-server/internal/engine"
	"github.com/poad/aws-lambda-mcp-server/internal/jsonrpc"
	"github.com/poad/aws-lambda-mcp-server/internal/logctx"
)

var (
	jsonMediaType  = contenttype.NewMediaType("application/json")
	jsonMediaTypes = []contenttype.MediaType{jsonMediaType}
)

var (
	// ErrTransportClosed is returned when a Transport is used, or closed, after Close.
	ErrTransportClosed = errors.New("transport: closed")
	// ErrTransportBound is returned by Bind when a handler is already attached.
	ErrTransportBound = errors.New("transport: handler already bound")
)

// Reply is the buffered outcome of one handled request. The transport never
// writes to the wire itself; it hands the finished reply to the lifecycle
// manager, which writes it only after both resources have been closed.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func newReply(status int, contentType string, body []byte) *Reply {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &Reply{StatusCode: status, Header: h, Body: body}
}

// Write emits the reply on the given ResponseWriter.
func (rep *Reply) Write(w http.ResponseWriter) error {
	for k, vs := range rep.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(rep.StatusCode)
	if len(rep.Body) > 0 {
		if _, err := w.Write(rep.Body); err != nil {
			return err
		}
	}
	return nil
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithSessionIDGenerator enables session-id issuance using the provided
// generator. The stateless handler never sets this: without an id there is
// no cross-request session correlation, which is exactly the contract.
func WithSessionIDGenerator(fn func() string) TransportOption {
	return func(t *Transport) { t.sessionIDGen = fn }
}

// WithJSONResponse toggles structured single-JSON-response mode. When
// disabled the transport would need a session stream to deliver responses,
// which the stateless profile does not have, so request handling fails.
func WithJSONResponse(enabled bool) TransportOption {
	return func(t *Transport) { t.jsonResponse = enabled }
}

// Transport adapts a single HTTP exchange to the engine's message model. It
// is created per request, bound to exactly one engine, and closed with it.
type Transport struct {
	log          *slog.Logger
	sessionIDGen func() string
	jsonResponse bool

	mu      sync.Mutex
	handler engine.Handler
	closed  bool
}

var _ engine.Transport = (*Transport)(nil)

// NewTransport constructs a Transport. The defaults (no session-id
// generator, JSON response mode off) match no useful profile on their own;
// the handler always passes WithJSONResponse(true).
func NewTransport(log *slog.Logger, opts ...TransportOption) *Transport {
	if log == nil {
		log = slog.Default()
	}
	t := &Transport{log: log}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Bind implements engine.Transport.
func (t *Transport) Bind(h engine.Handler) error {
	if h == nil {
		return fmt.Errorf("transport: handler is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	if t.handler != nil {
		return ErrTransportBound
	}
	t.handler = h
	return nil
}

// Close implements engine.Transport. Closing twice is an error so that
// double-teardown bugs surface in logs.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	t.closed = true
	t.handler = nil
	return nil
}

// Handle converts the inbound HTTP request into a protocol message, delivers
// it to the bound engine and returns the buffered reply. A non-nil error
// means the exchange failed internally and the caller should produce the
// normalized internal-error response instead.
func (t *Transport) Handle(ctx context.Context, r *http.Request) (*Reply, error) {
	t.mu.Lock()
	h := t.handler
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTransportClosed
	}
	if h == nil {
		return nil, fmt.Errorf("transport: not connected to an engine")
	}

	if r.Method != http.MethodPost {
		// Without session-id issuance there is no session to stream, so the
		// GET half of the streamable transport cannot be served.
		t.log.DebugContext(ctx, "transport.stream.unsupported", slog.String("verb", r.Method))
		return newReply(http.StatusMethodNotAllowed, jsonMediaType.String(), envelopeMethodNotAllowed), nil
	}
	return t.handlePost(ctx, h, r)
}

func (t *Transport) handlePost(ctx context.Context, h engine.Handler, r *http.Request) (*Reply, error) {
	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		t.log.DebugContext(ctx, "transport.content_type.unsupported")
		return transportReject(http.StatusUnsupportedMediaType, "content-type must be application/json"), nil
	}
	if acc := r.Header.Get("Accept"); acc != "" {
		if _, _, err := contenttype.GetAcceptableMediaType(r, jsonMediaTypes); err != nil {
			t.log.DebugContext(ctx, "transport.accept.unsupported", slog.String("accept", acc))
			return transportReject(http.StatusNotAcceptable, "accept must include application/json"), nil
		}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		t.log.DebugContext(ctx, "transport.json.decode.fail", slog.String("err", err.Error()))
		return errorReply(http.StatusBadRequest, jsonrpc.ErrorCodeParseError, "parse error"), nil
	}
	if len(raw) > 0 && raw[0] == '[' {
		t.log.DebugContext(ctx, "transport.jsonrpc.batch.forbidden")
		return errorReply(http.StatusBadRequest, jsonrpc.ErrorCodeInvalidRequest, "batch requests are not supported"), nil
	}

	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.log.DebugContext(ctx, "transport.jsonrpc.message.invalid", slog.String("err", err.Error()))
		return errorReply(http.StatusBadRequest, jsonrpc.ErrorCodeInvalidRequest, "invalid JSON-RPC message"), nil
	}

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   msg.Type(),
	})

	req := msg.AsRequest()
	if req == nil || req.ID.IsNil() {
		// Notification or client response: deliver and acknowledge without a body.
		if _, err := h.HandleMessage(ctx, &msg); err != nil {
			return nil, fmt.Errorf("transport: deliver message: %w", err)
		}
		t.log.DebugContext(ctx, "rpc.inbound.accepted")
		return newReply(http.StatusAccepted, "", nil), nil
	}

	if !t.jsonResponse {
		return nil, fmt.Errorf("transport: structured response mode disabled and no session stream available")
	}

	res, err := h.HandleMessage(ctx, &msg)
	if err != nil {
		return nil, fmt.Errorf("transport: handle request: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("transport: engine returned no response for request %s", req.ID.String())
	}

	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal response: %w", err)
	}

	rep := newReply(http.StatusOK, jsonMediaType.String(), body)
	if t.sessionIDGen != nil {
		rep.Header.Set("Mcp-Session-Id", t.sessionIDGen())
	}
	t.log.DebugContext(ctx, "rpc.inbound.ok")
	return rep, nil
}

// transportReject emits a minimal JSON body for HTTP-layer rejections before
// a JSON-RPC message exchange is possible. We do NOT claim JSON-RPC framing
// here; this is transport-level.
func transportReject(status int, msg string) *Reply {
	body, _ := json.Marshal(map[string]any{"error": map[string]any{"code": status, "message": msg}})
	return newReply(status, jsonMediaType.String(), body)
}

// errorReply builds a detached JSON-RPC error envelope (id null).
func errorReply(status int, code jsonrpc.ErrorCode, message string) *Reply {
	body, _ := json.Marshal(jsonrpc.NewErrorResponse(nil, code, message, nil))
	return newReply(status, jsonMediaType.String(), body)
}
