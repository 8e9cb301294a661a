package completion

import (
	"context"
	"encoding/json"
)

// Position is a 0-indexed location in a text document.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Request asks for completions at a cursor position.
type Request struct {
	FilePath      string   `json:"file_path"`
	Language      string   `json:"language"`
	CurrentLine   string   `json:"current_line"`
	CursorPos     Position `json:"cursor_position"`
	ContextBefore []string `json:"context_before,omitempty"`
	ContextAfter  []string `json:"context_after,omitempty"`
}

// Source identifies where a completion came from.
type Source string

const (
	SourceStatic Source = "static"
	SourceLLM    Source = "llm"
	SourceMCP    Source = "mcp"
	SourceRAG    Source = "rag"
)

// Completion is a single suggestion. CursorOffset moves the cursor after
// insertion, typically into the inserted block.
type Completion struct {
	Text         string          `json:"text"`
	CursorOffset int             `json:"cursor_offset"`
	Confidence   float64         `json:"confidence"`
	Source       Source          `json:"source"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// Response carries the suggestions for one Request.
type Response struct {
	Completions      []Completion `json:"completions"`
	ProcessingTimeMS int64        `json:"processing_time_ms"`
}

// Pattern is a code construct detected on the current line.
type Pattern int

const (
	PatternUnknown Pattern = iota
	PatternFunctionStart
	PatternIfStatement
	PatternForLoop
	PatternWhileLoop
	PatternStructDef
	PatternImplBlock
	PatternMatchStatement
)

func (p Pattern) String() string {
	switch p {
	case PatternFunctionStart:
		return "function_start"
	case PatternIfStatement:
		return "if_statement"
	case PatternForLoop:
		return "for_loop"
	case PatternWhileLoop:
		return "while_loop"
	case PatternStructDef:
		return "struct_def"
	case PatternImplBlock:
		return "impl_block"
	case PatternMatchStatement:
		return "match_statement"
	default:
		return "unknown"
	}
}

// PatternDetector recognizes code patterns and supplies completion templates
// for them.
type PatternDetector interface {
	DetectPattern(line, language string) Pattern
	Template(pattern Pattern, language string) (string, bool)
}

// Provider generates completions for a request. Providers report a stable
// Name for diagnostics and may be toggled off without being removed from the
// engine.
type Provider interface {
	Complete(ctx context.Context, req *Request) ([]Completion, error)
	Name() string
	Enabled() bool
}
