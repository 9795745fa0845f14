package tests

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/poad/aws-lambda-mcp-server/internal/app"
	"github.com/poad/aws-lambda-mcp-server/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := app.NewHandler(config.Config{
		EndpointPath:  "/mcp",
		ServerName:    "e2e-server",
		ServerVersion: "0.0.0",
	}, log)
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// TestEcho_E2E drives the full stack through the official SDK client:
// initialize handshake, tool listing and a tool call, all over independent
// stateless requests.
func TestEcho_E2E(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	srv := newTestServer(t)

	client := sdk.NewClient(&sdk.Implementation{Name: "e2e", Version: "0.0.0"}, &sdk.ClientOptions{})
	transport := &sdk.StreamableClientTransport{
		Endpoint: srv.URL + "/mcp",
	}
	cs, err := client.Connect(ctx, transport, &sdk.ClientSessionOptions{})
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer cs.Close()

	lt, err := cs.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(lt.Tools) != 1 || lt.Tools[0].Name != "echo" {
		t.Fatalf("unexpected tools: %+v", lt.Tools)
	}

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{
		Name: "echo",
		Arguments: map[string]any{
			"message": "hello",
		},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if len(res.Content) == 0 {
		t.Fatalf("unexpected empty call result: %+v", res)
	}
}

// TestStateless_E2E verifies there is no cross-request session: no session id
// header is ever issued, and a second client session starting from scratch
// works against the same server.
func TestStateless_E2E(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"raw","version":"0.0.0"}}}`))
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.Fatalf("stateless server issued a session id: %q", sid)
	}

	for i := 0; i < 2; i++ {
		client := sdk.NewClient(&sdk.Implementation{Name: "e2e", Version: "0.0.0"}, &sdk.ClientOptions{})
		cs, err := client.Connect(ctx, &sdk.StreamableClientTransport{Endpoint: srv.URL + "/mcp"}, &sdk.ClientSessionOptions{})
		if err != nil {
			t.Fatalf("connect %d failed: %v", i, err)
		}
		if _, err := cs.ListTools(ctx, &sdk.ListToolsParams{}); err != nil {
			t.Fatalf("ListTools %d failed: %v", i, err)
		}
		cs.Close()
	}
}

// TestDisallowedVerbs_E2E checks the fixed rejection envelope on verbs the
// endpoint does not serve.
func TestDisallowedVerbs_E2E(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	const wantBody = `{"jsonrpc":"2.0","error":{"code":-32000,"message":"メソッドは許可されていません。"},"id":null}`
	for _, verb := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions} {
		req, err := http.NewRequest(verb, srv.URL+"/mcp", nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s failed: %v", verb, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("%s: unexpected status %d", verb, resp.StatusCode)
		}
		if got := strings.TrimSpace(string(body)); got != wantBody {
			t.Fatalf("%s: unexpected body %s", verb, got)
		}
	}
}
