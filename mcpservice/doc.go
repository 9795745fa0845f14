// Package mcpservice defines the capability interfaces that an MCP server
// implementation exposes to the protocol engine in this repository.
//
// The engine discovers capabilities when it is connected to a transport and
// translates method calls on these interfaces into MCP JSON-RPC messages.
// Because every inbound request gets its own engine, there is no session
// dimension here: a capability value describes the server as a whole and MUST
// be safe for concurrent use across requests.
//
// Conventions used throughout this package:
//   - Capability discovery methods return (cap, ok, err). A false ok indicates
//     that the capability is not supported; err should be reserved for
//     transient or internal failures while determining support.
//   - All methods accept a context.Context which MUST be honored for
//     cancellation. Implementations should return promptly when the context is
//     canceled or its deadline is exceeded.
//   - Pagination uses the Page[T] type in this package; a nil cursor requests
//     the first page. Implementations SHOULD populate NextCursor when more
//     data is available.
package mcpservice
