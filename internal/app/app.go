// Package app assembles the MCP server shared by the entrypoints: the tool
// set, the capability description, the per-request engine factory and the
// stateless HTTP handler.
package app

import (
	"context"
	"log/slog"

	"github.com/poad/aws-lambda-mcp-server/internal/config"
	"github.com/poad/aws-lambda-mcp-server/internal/engine"
	"github.com/poad/aws-lambda-mcp-server/mcp"
	"github.com/poad/aws-lambda-mcp-server/mcpservice"
	"github.com/poad/aws-lambda-mcp-server/statelesshttp"
)

type echoArgs struct {
	Message string `json:"message" jsonschema:"description=Text to echo back."`
}

// NewHandler builds the HTTP handler for the configured MCP server. Each
// inbound request receives a fresh engine from the factory wired here;
// the capability set itself is shared and concurrency-safe.
func NewHandler(cfg config.Config, log *slog.Logger) (*statelesshttp.Handler, error) {
	tools := mcpservice.NewToolsContainer(
		mcpservice.NewTool("echo", func(ctx context.Context, args echoArgs) (*mcp.CallToolResult, error) {
			return mcpservice.TextResult(args.Message), nil
		}, mcpservice.WithToolDescription("Echoes back the provided message.")),
	)

	caps := mcpservice.NewServer(
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: cfg.ServerName, Version: cfg.ServerVersion}),
		mcpservice.WithToolsCapability(tools),
		mcpservice.WithInstructions("Stateless MCP server. Every request is independent; no session is retained."),
	)

	engines := func(ctx context.Context) (statelesshttp.Engine, error) {
		return engine.NewEngine(caps, engine.WithLogger(log)), nil
	}

	return statelesshttp.New(cfg.EndpointPath, engines, statelesshttp.WithLogger(log))
}
