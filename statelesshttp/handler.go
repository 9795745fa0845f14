package statelesshttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poad/aws-lambda-mcp-server/internal/engine"
	"github.com/poad/aws-lambda-mcp-server/internal/jsonrpc"
	"github.com/poad/aws-lambda-mcp-server/internal/logctx"
)

var _ http.Handler = (*Handler)(nil)

// Wire error strings carried over from the deployed endpoint; localized
// message text is part of the response contract.
const (
	msgMethodNotAllowed = "メソッドは許可されていません。"
	msgInternalError    = "内部サーバーエラー"
)

var (
	envelopeMethodNotAllowed = mustEnvelope(jsonrpc.ErrorCodeMethodNotAllowed, msgMethodNotAllowed)
	envelopeInternalError    = mustEnvelope(jsonrpc.ErrorCodeInternalError, msgInternalError)
)

func mustEnvelope(code jsonrpc.ErrorCode, message string) []byte {
	body, err := json.Marshal(jsonrpc.NewErrorResponse(nil, code, message, nil))
	if err != nil {
		panic(fmt.Sprintf("statelesshttp: marshal error envelope: %v", err))
	}
	return body
}

// Engine is the protocol engine consumed by the handler, one instance per
// inbound request. It is satisfied by *engine.Engine.
type Engine interface {
	ID() string
	Connect(ctx context.Context, t engine.Transport) error
	Close(ctx context.Context) error
}

// EngineFactory produces a fresh engine for a single inbound request. The
// factory is the explicit construction capability: the handler never shares
// an engine between requests and never reuses one after the request ends.
type EngineFactory func(ctx context.Context) (Engine, error)

// serverTransport is the handler-facing transport contract. *Transport is
// the production implementation; tests substitute instrumented fakes.
type serverTransport interface {
	engine.Transport
	Handle(ctx context.Context, r *http.Request) (*Reply, error)
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger *slog.Logger
}

// WithLogger sets the slog logger used by the handler. If not provided, the
// default logger is used.
func WithLogger(log *slog.Logger) Option {
	return func(c *newConfig) { c.logger = log }
}

// Handler routes the MCP endpoint and runs the per-request lifecycle:
// engine creation, transport wiring, delegation, and guaranteed teardown.
type Handler struct {
	mux     *http.ServeMux
	log     *slog.Logger
	engines EngineFactory

	// newTransport is swapped by tests to observe lifecycle interactions.
	newTransport func() serverTransport
}

// New constructs a Handler serving the MCP endpoint at endpointPath.
//
// POST and GET run the full engine/transport lifecycle. PUT, DELETE, PATCH
// and OPTIONS are rejected with the fixed method-not-allowed envelope and
// never reach the factory.
func New(endpointPath string, engines EngineFactory, opts ...Option) (*Handler, error) {
	if engines == nil {
		return nil, fmt.Errorf("engine factory is required")
	}
	if endpointPath == "" || !strings.HasPrefix(endpointPath, "/") {
		return nil, fmt.Errorf("invalid endpoint path %q", endpointPath)
	}

	cfg := &newConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	log := slog.New(logctx.Handler{Handler: cfg.logger.Handler()})
	h := &Handler{log: log, engines: engines}
	h.newTransport = func() serverTransport {
		return NewTransport(log, WithJSONResponse(true))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("POST %s", endpointPath), h.serveMCP)
	mux.HandleFunc(fmt.Sprintf("GET %s", endpointPath), h.serveMCP)
	for _, verb := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions} {
		mux.HandleFunc(fmt.Sprintf("%s %s", verb, endpointPath), h.rejectVerb)
	}
	h.mux = mux
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// rejectVerb answers disallowed verbs with the canonical envelope. No engine
// or transport is constructed on this path.
func (h *Handler) rejectVerb(w http.ResponseWriter, r *http.Request) {
	h.log.WarnContext(r.Context(), "mcp.verb.rejected", slog.String("verb", r.Method))
	writeEnvelope(w, http.StatusMethodNotAllowed, envelopeMethodNotAllowed)
}

// serveMCP is the per-request lifecycle: create an engine and a transport,
// connect, delegate, and close both before the response is written. Connect,
// handle and close failures are distinct observable conditions; only the
// first failure shapes the response.
func (h *Handler) serveMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.DebugContext(ctx, "mcp.request.start")

	eng, err := h.engines(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "engine.create.fail", slog.String("stage", "create"), slog.String("err", err.Error()))
		writeEnvelope(w, http.StatusInternalServerError, envelopeInternalError)
		return
	}
	ctx = logctx.WithEngineData(ctx, &logctx.EngineData{EngineID: eng.ID()})

	t := h.newTransport()
	rep, err := h.runExchange(ctx, eng, t, r)

	// Teardown is unconditional: both resources are closed whether the
	// exchange succeeded or not, and before anything reaches the wire.
	h.closeResources(ctx, eng, t)

	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, envelopeInternalError)
		return
	}
	if err := rep.Write(w); err != nil {
		h.log.ErrorContext(ctx, "mcp.response.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.DebugContext(ctx, "mcp.request.ok", slog.Int("status", rep.StatusCode), slog.Duration("dur", time.Since(start)))
}

// runExchange wires the transport to the engine and delegates the request.
// Failures are logged at the step where they occur so connect and handle
// remain distinguishable in the logs.
func (h *Handler) runExchange(ctx context.Context, eng Engine, t serverTransport, r *http.Request) (*Reply, error) {
	if err := eng.Connect(ctx, t); err != nil {
		h.log.ErrorContext(ctx, "engine.connect.fail", slog.String("stage", "connect"), slog.String("err", err.Error()))
		return nil, err
	}
	rep, err := t.Handle(ctx, r)
	if err != nil {
		h.log.ErrorContext(ctx, "transport.handle.fail", slog.String("stage", "handle"), slog.String("err", err.Error()))
		return nil, err
	}
	return rep, nil
}

// closeResources closes the transport and the engine as an all-settled pair:
// both close attempts are always issued, each outcome is observed and logged
// independently, and a failure in one never aborts the other. It never
// returns an error; closure failures must not mask the primary outcome.
func (h *Handler) closeResources(ctx context.Context, eng Engine, t serverTransport) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := t.Close(ctx); err != nil {
			h.log.ErrorContext(ctx, "transport.close.fail", slog.String("stage", "close"), slog.String("resource", "transport"), slog.String("err", err.Error()))
		}
	}()
	go func() {
		defer wg.Done()
		if err := eng.Close(ctx); err != nil {
			h.log.ErrorContext(ctx, "engine.close.fail", slog.String("stage", "close"), slog.String("resource", "engine"), slog.String("err", err.Error()))
		}
	}()
	wg.Wait()
}

func writeEnvelope(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
