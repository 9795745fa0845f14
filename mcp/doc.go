// Package mcp contains protocol data types and constants shared across the
// transport and server capability implementations. It mirrors the wire
// representation specified by the Model Context Protocol while keeping the
// surface Go-friendly (exported structs with json tags, string constants for
// method names).
//
// The package is intentionally free of transport logic: the stateless HTTP
// transport imports these types but implements its own framing and content
// negotiation. Likewise mcpservice constructs responses using these concrete
// types and hands them to the engine for JSON-RPC serialization.
//
// JSON-RPC method and notification names are enumerated as Method constants
// (e.g. ToolsListMethod). Using the constants avoids typographical mistakes
// and ensures a single point of truth if the protocol evolves.
package mcp
