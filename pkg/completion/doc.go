// Package completion provides a pluggable code completion engine. Providers
// produce candidate completions for a cursor position; the engine merges,
// ranks, and deduplicates them. A static pattern provider ships with the
// package; LLM, MCP, and RAG backed providers plug in through the same
// Provider interface.
package completion
