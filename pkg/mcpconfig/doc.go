// Package mcpconfig loads and validates MCP server configuration in the
// formats used by MCPHub, VS Code, Cursor, and Claude Desktop. Server entries
// keep their file order, ${env:NAME} references are expanded at load time, and
// each entry is narrowed to exactly one of the two transport variants:
// LocalServerConfig (stdio child process) or RemoteServerConfig (HTTP
// endpoint).
package mcpconfig
