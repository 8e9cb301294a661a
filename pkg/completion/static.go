package completion

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	rustFnPattern     = regexp.MustCompile(`^\s*(?:pub\s+)?(?:async\s+)?fn\s+\w+`)
	rustIfPattern     = regexp.MustCompile(`^\s*if\s+`)
	rustForPattern    = regexp.MustCompile(`^\s*for\s+`)
	rustWhilePattern  = regexp.MustCompile(`^\s*while\s+`)
	rustStructPattern = regexp.MustCompile(`^\s*(?:pub\s+)?struct\s+\w+`)
	rustImplPattern   = regexp.MustCompile(`^\s*impl(?:<[^>]+>)?\s+`)
	rustMatchPattern  = regexp.MustCompile(`^\s*match\s+`)

	pythonDefPattern   = regexp.MustCompile(`^\s*(?:async\s+)?def\s+\w+`)
	pythonClassPattern = regexp.MustCompile(`^\s*class\s+\w+`)

	jsFnPattern    = regexp.MustCompile(`^\s*(?:async\s+)?(?:function\s+\w+|const\s+\w+\s*=\s*(?:async\s+)?\([^)]*\)\s*=>)`)
	jsIfPattern    = regexp.MustCompile(`^\s*if\s*\(`)
	jsForPattern   = regexp.MustCompile(`^\s*for\s*\(`)
	jsWhilePattern = regexp.MustCompile(`^\s*while\s*\(`)
)

// StaticPatternDetector recognizes common constructs in rust, python, and
// javascript/typescript source lines.
type StaticPatternDetector struct{}

func (StaticPatternDetector) DetectPattern(line, language string) Pattern {
	trimmed := strings.TrimSpace(line)
	switch language {
	case "rust":
		return detectRustPattern(trimmed)
	case "python":
		return detectPythonPattern(trimmed)
	case "javascript", "typescript":
		return detectJSPattern(trimmed)
	default:
		return PatternUnknown
	}
}

func (StaticPatternDetector) Template(pattern Pattern, language string) (string, bool) {
	const block = " {\n    \n}"
	const indent = ":\n    "
	switch language {
	case "rust":
		switch pattern {
		case PatternFunctionStart:
			return "()" + block, true
		case PatternIfStatement, PatternForLoop, PatternWhileLoop,
			PatternStructDef, PatternImplBlock, PatternMatchStatement:
			return block, true
		}
	case "python":
		switch pattern {
		case PatternFunctionStart, PatternIfStatement, PatternForLoop,
			PatternWhileLoop, PatternStructDef:
			return indent, true
		}
	case "javascript", "typescript":
		switch pattern {
		case PatternFunctionStart:
			return "()" + block, true
		case PatternIfStatement, PatternForLoop, PatternWhileLoop:
			return block, true
		}
	}
	return "", false
}

func detectRustPattern(line string) Pattern {
	if strings.Contains(line, "{") {
		return PatternUnknown
	}
	switch {
	case rustFnPattern.MatchString(line):
		return PatternFunctionStart
	case rustIfPattern.MatchString(line):
		return PatternIfStatement
	case rustForPattern.MatchString(line):
		return PatternForLoop
	case rustWhilePattern.MatchString(line):
		return PatternWhileLoop
	case rustStructPattern.MatchString(line):
		return PatternStructDef
	case rustImplPattern.MatchString(line):
		return PatternImplBlock
	case rustMatchPattern.MatchString(line):
		return PatternMatchStatement
	default:
		return PatternUnknown
	}
}

func detectPythonPattern(line string) Pattern {
	if strings.HasSuffix(line, ":") {
		return PatternUnknown
	}
	switch {
	case pythonDefPattern.MatchString(line):
		return PatternFunctionStart
	case rustIfPattern.MatchString(line):
		return PatternIfStatement
	case rustForPattern.MatchString(line):
		return PatternForLoop
	case rustWhilePattern.MatchString(line):
		return PatternWhileLoop
	case pythonClassPattern.MatchString(line):
		return PatternStructDef
	default:
		return PatternUnknown
	}
}

func detectJSPattern(line string) Pattern {
	if strings.Contains(line, "{") {
		return PatternUnknown
	}
	switch {
	case jsFnPattern.MatchString(line):
		return PatternFunctionStart
	case jsIfPattern.MatchString(line):
		return PatternIfStatement
	case jsForPattern.MatchString(line):
		return PatternForLoop
	case jsWhilePattern.MatchString(line):
		return PatternWhileLoop
	default:
		return PatternUnknown
	}
}

// StaticProvider supplies template completions for detected patterns.
type StaticProvider struct {
	detector StaticPatternDetector
	enabled  bool
}

// NewStaticProvider builds an enabled StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{enabled: true}
}

// SetEnabled toggles the provider without removing it from the engine.
func (p *StaticProvider) SetEnabled(enabled bool) { p.enabled = enabled }

func (p *StaticProvider) Complete(_ context.Context, req *Request) ([]Completion, error) {
	pattern := p.detector.DetectPattern(req.CurrentLine, req.Language)
	if pattern == PatternUnknown {
		return nil, nil
	}
	template, ok := p.detector.Template(pattern, req.Language)
	if !ok {
		return nil, nil
	}
	metadata, _ := json.Marshal(map[string]string{"pattern": pattern.String()})
	return []Completion{{
		Text:         template,
		CursorOffset: -2,
		Confidence:   0.8,
		Source:       SourceStatic,
		Metadata:     metadata,
	}}, nil
}

func (p *StaticProvider) Name() string  { return "static-pattern" }
func (p *StaticProvider) Enabled() bool { return p.enabled }
