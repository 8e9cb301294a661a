// Package mcporch orchestrates connections to multiple Model Context Protocol
// (MCP) servers from a single Go process. It seeds one tracked entry per
// configured server, brings them up concurrently, and routes tool and resource
// operations to the named server while keeping a live status snapshot for all
// of them.
//
// # Core entry points
//
//   - Orchestrator is the long-lived coordination type. Construct it with New
//     over a mcpconfig.Config, then call Initialize to validate, seed, and
//     connect.
//   - Session abstracts one live server connection; the default
//     SessionFactory dials stdio child processes and Streamable HTTP/SSE
//     endpoints through the modelcontextprotocol go-sdk.
//
// Aggregate operations (ConnectAll, ListAllTools, ListAllResources) are
// best-effort: one server's trouble never fails the batch, it only shows up in
// that server's status or the degraded list. Routed operations (CallTool,
// ReadResource, Reconnect) surface their errors directly, using the
// ErrServerNotFound and ErrServerNotConnected sentinels for routing failures.
package mcporch
