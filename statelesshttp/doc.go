// Package statelesshttp implements the stateless request/response profile of
// the MCP streamable HTTP transport, suitable for platforms such as AWS
// Lambda where nothing may survive a single invocation.
//
// Every inbound call gets a freshly constructed protocol engine and
// transport pair: the handler obtains an engine from its configured factory,
// connects a new Transport (session-id generation disabled, single JSON
// response per request), delegates handling, and closes both resources
// before returning, on the failure paths as well as the happy one. Closure
// failures are logged but never replace the response produced for the
// original failure.
//
// The HTTP surface is a single endpoint path. POST and GET run the full
// lifecycle; PUT, DELETE, PATCH and OPTIONS are answered immediately with a
// fixed JSON-RPC error envelope and never construct resources.
package statelesshttp
