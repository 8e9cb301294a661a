package completion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRustPatterns(t *testing.T) {
	t.Parallel()

	var d StaticPatternDetector
	cases := []struct {
		line    string
		pattern Pattern
	}{
		{"fn main", PatternFunctionStart},
		{"pub fn parse(input: &str)", PatternFunctionStart},
		{"pub async fn run()", PatternFunctionStart},
		{"if x > 0", PatternIfStatement},
		{"for item in items", PatternForLoop},
		{"while running", PatternWhileLoop},
		{"pub struct Config", PatternStructDef},
		{"impl Config", PatternImplBlock},
		{"impl<T> Wrapper<T>", PatternImplBlock},
		{"match value", PatternMatchStatement},
		{"let x = 5;", PatternUnknown},
		{"fn main() {", PatternUnknown}, // already opened, nothing to complete
	}
	for _, tc := range cases {
		assert.Equal(t, tc.pattern, d.DetectPattern(tc.line, "rust"), "line: %s", tc.line)
	}
}

func TestDetectPythonPatterns(t *testing.T) {
	t.Parallel()

	var d StaticPatternDetector
	cases := []struct {
		line    string
		pattern Pattern
	}{
		{"def handler(request)", PatternFunctionStart},
		{"async def fetch(url)", PatternFunctionStart},
		{"if value is None", PatternIfStatement},
		{"for row in rows", PatternForLoop},
		{"while True", PatternWhileLoop},
		{"class Widget", PatternStructDef},
		{"x = 5", PatternUnknown},
		{"def handler(request):", PatternUnknown}, // colon already typed
	}
	for _, tc := range cases {
		assert.Equal(t, tc.pattern, d.DetectPattern(tc.line, "python"), "line: %s", tc.line)
	}
}

func TestDetectJavaScriptPatterns(t *testing.T) {
	t.Parallel()

	var d StaticPatternDetector
	cases := []struct {
		line    string
		pattern Pattern
	}{
		{"function render", PatternFunctionStart},
		{"async function load", PatternFunctionStart},
		{"const add = (a, b) =>", PatternFunctionStart},
		{"if (ready)", PatternIfStatement},
		{"for (const x of xs)", PatternForLoop},
		{"while (true)", PatternWhileLoop},
		{"const x = 5;", PatternUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.pattern, d.DetectPattern(tc.line, "javascript"), "line: %s", tc.line)
		assert.Equal(t, tc.pattern, d.DetectPattern(tc.line, "typescript"), "line: %s", tc.line)
	}
}

func TestDetectUnknownLanguage(t *testing.T) {
	t.Parallel()

	var d StaticPatternDetector
	assert.Equal(t, PatternUnknown, d.DetectPattern("fn main", "cobol"))
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	var d StaticPatternDetector

	rustFn, ok := d.Template(PatternFunctionStart, "rust")
	require.True(t, ok)
	assert.Equal(t, "() {\n    \n}", rustFn)

	rustIf, ok := d.Template(PatternIfStatement, "rust")
	require.True(t, ok)
	assert.Equal(t, " {\n    \n}", rustIf)

	pyDef, ok := d.Template(PatternFunctionStart, "python")
	require.True(t, ok)
	assert.Equal(t, ":\n    ", pyDef)

	_, ok = d.Template(PatternImplBlock, "python")
	assert.False(t, ok, "python has no impl blocks")

	_, ok = d.Template(PatternUnknown, "rust")
	assert.False(t, ok)
}

func TestStaticProviderComplete(t *testing.T) {
	t.Parallel()

	p := NewStaticProvider()
	assert.Equal(t, "static-pattern", p.Name())
	assert.True(t, p.Enabled())

	completions, err := p.Complete(context.Background(), &Request{
		Language:    "rust",
		CurrentLine: "fn main",
	})
	require.NoError(t, err)
	require.Len(t, completions, 1)

	c := completions[0]
	assert.Equal(t, "() {\n    \n}", c.Text)
	assert.Equal(t, -2, c.CursorOffset)
	assert.InDelta(t, 0.8, c.Confidence, 1e-9)
	assert.Equal(t, SourceStatic, c.Source)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(c.Metadata, &meta))
	assert.Equal(t, "function_start", meta["pattern"])
}

func TestStaticProviderNoPattern(t *testing.T) {
	t.Parallel()

	p := NewStaticProvider()
	completions, err := p.Complete(context.Background(), &Request{
		Language:    "rust",
		CurrentLine: "let x = 5;",
	})
	require.NoError(t, err)
	assert.Empty(t, completions)
}

func TestStaticProviderDisable(t *testing.T) {
	t.Parallel()

	p := NewStaticProvider()
	p.SetEnabled(false)
	assert.False(t, p.Enabled())
}
