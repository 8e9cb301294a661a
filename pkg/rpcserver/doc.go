// Package rpcserver exposes the completion engine and MCP orchestrator over
// line-delimited JSON-RPC 2.0, the framing editor plugins speak on stdio.
package rpcserver
