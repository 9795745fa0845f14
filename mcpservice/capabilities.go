package mcpservice

import (
	"context"

	"github.com/poad/aws-lambda-mcp-server/mcp"
)

type ServerCapabilities interface {
	// GetServerInfo returns static implementation information about the server
	// that is surfaced in initialize results (name, version, etc.).
	//
	// This method MAY be called multiple times and SHOULD be inexpensive.
	// Return an error only for unexpected failures; the engine will translate
	// it to an MCP error.
	GetServerInfo(ctx context.Context) (mcp.ImplementationInfo, error)

	// GetPreferredProtocolVersion returns the server's preferred MCP protocol
	// version. If ok is false, the engine falls back to the client's requested
	// version.
	GetPreferredProtocolVersion(ctx context.Context) (version string, ok bool, err error)

	// GetInstructions returns optional human-readable instructions that should
	// be surfaced to the client during initialization. If ok is false, no
	// instructions will be included in the initialize result.
	GetInstructions(ctx context.Context) (instructions string, ok bool, err error)

	// GetToolsCapability returns the tools capability if supported by the
	// server. If ok is false, the engine will not advertise tool support in
	// the server capabilities.
	//
	// The returned value MUST be safe for concurrent use.
	GetToolsCapability(ctx context.Context) (cap ToolsCapability, ok bool, err error)
}

// ToolsCapability is the interface for MCP tool support.
// Implementations MUST be safe for concurrent use.
type ToolsCapability interface {
	// ListTools returns a (possibly paginated) list of available tools.
	// A nil cursor requests the first page. When more results are available,
	// Page.NextCursor SHOULD be set.
	ListTools(ctx context.Context, cursor *string) (Page[mcp.Tool], error)

	// CallTool invokes a named tool with the provided request payload.
	// Implementations SHOULD validate inputs and return structured MCP errors
	// when appropriate.
	CallTool(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)
}
