package codegen

import (
	"encoding/json"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/picmeta/pkg/schema"
)

const generatorSrc = `package generate

import "strings"

func build(modelObj map[string]any, provider string) map[string]any {
	sidecar := map[string]any{
		// Title comes straight from the model.
		"title":       valueOr(modelObj, "title", ""),
		"description": strings.TrimSpace(toString(modelObj["description"])),
		"caption":     valueOr(modelObj, "caption", ""), // deprecated
		"ai_generated": true,
		"ai_details": map[string]any{
			"provider": provider,
			"legacy":   1,
		},
	}
	return sidecar
}
`

const currentSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "tags": {"type": "array", "default": []},
    "ai_generated": {"type": "boolean"},
    "ai_details": {
      "type": "object",
      "properties": {
        "provider": {"type": "string"},
        "model": {"type": "string"},
        "response_id": {"type": "string"}
      }
    },
    "reviewed": {"type": "boolean", "default": false},
    "detected_at": {"type": "integer"}
  }
}`

func parseSchema(t *testing.T, s string) schema.Node {
	t.Helper()
	n, err := schema.Parse([]byte(s))
	require.NoError(t, err)
	return n
}

// squash collapses gofmt's column alignment so assertions don't depend on padding.
func squash(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Join(lines, "\n")
}

// literalKeys parses src and returns the sorted keys of the template literal and of its
// nested detail literal.
func literalKeys(t *testing.T, src []byte) (top []string, detail []string) {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.ParseComments)
	require.NoError(t, err, "rewritten source must parse")

	lit := findLiteral(f, "sidecar")
	require.NotNil(t, lit)
	for _, elt := range lit.Elts {
		kv := elt.(*ast.KeyValueExpr)
		k, err := strconv.Unquote(kv.Key.(*ast.BasicLit).Value)
		require.NoError(t, err)
		top = append(top, k)
		if k == schema.DetailField {
			for _, d := range kv.Value.(*ast.CompositeLit).Elts {
				dk, err := strconv.Unquote(d.(*ast.KeyValueExpr).Key.(*ast.BasicLit).Value)
				require.NoError(t, err)
				detail = append(detail, dk)
			}
		}
	}
	sort.Strings(top)
	sort.Strings(detail)
	return top, detail
}

func TestRewriteSyncsLiteral(t *testing.T) {
	s := parseSchema(t, currentSchema)
	out, changed, err := Rewrite([]byte(generatorSrc), s, DefaultTemplate())
	require.NoError(t, err)
	assert.True(t, changed)

	top, detail := literalKeys(t, out)
	assert.Equal(t, s.Names(), top)
	assert.Equal(t, s.Property(schema.DetailField).Names(), detail)

	got := squash(string(out))
	// Existing expressions and their comments are preserved.
	assert.Contains(t, got, "// Title comes straight from the model.")
	assert.Contains(t, got, `"description": strings.TrimSpace(toString(modelObj["description"])),`)
	assert.Contains(t, got, `"provider": provider,`)
	// Removed entries disappear along with their trailing comments.
	assert.NotContains(t, got, "caption")
	assert.NotContains(t, got, "deprecated")
	assert.NotContains(t, got, "legacy")
	// New top-level entries look up the model output first.
	assert.Contains(t, got, `"tags": valueOr(modelObj, "tags", []any{}),`)
	assert.Contains(t, got, `"reviewed": valueOr(modelObj, "reviewed", false),`)
	assert.Contains(t, got, `"detected_at": valueOr(modelObj, "detected_at", 0),`)
	// New detail entries are plain defaults.
	assert.Contains(t, got, `"model": "",`)
	assert.Contains(t, got, `"response_id": "",`)
}

func TestRewriteIsIdempotent(t *testing.T) {
	s := parseSchema(t, currentSchema)
	once, changed, err := Rewrite([]byte(generatorSrc), s, DefaultTemplate())
	require.NoError(t, err)
	require.True(t, changed)

	twice, changed, err := Rewrite(once, s, DefaultTemplate())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, string(once), string(twice))
}

func TestRewriteNoopLeavesSourceUntouched(t *testing.T) {
	src := "package x\n\nfunc f(modelObj map[string]any) {\n\tsidecar := map[string]any{\n\t\t\"title\" :   1,\n\t}\n\t_ = sidecar\n}\n"
	s := parseSchema(t, `{"properties": {"title": {"type": "string"}}}`)

	out, changed, err := Rewrite([]byte(src), s, DefaultTemplate())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, src, string(out), "unformatted source must not be reformatted when nothing changed")
}

func TestRewriteSingleLineLiteral(t *testing.T) {
	src := "package x\n\nvar sidecar = map[string]any{\"title\": t, \"old\": 1}\n"
	s := parseSchema(t, `{"properties": {"title": {"type": "string"}, "description": {"type": "string"}}}`)

	out, changed, err := Rewrite([]byte(src), s, DefaultTemplate())
	require.NoError(t, err)
	assert.True(t, changed)

	top, _ := literalKeys(t, out)
	assert.Equal(t, []string{"description", "title"}, top)
	assert.Contains(t, squash(string(out)), `"title": t`)
	assert.Contains(t, squash(string(out)), `valueOr(modelObj, "description", "")`)
}

func TestRewriteRemovesLastEntryOfSingleLineLiteral(t *testing.T) {
	src := "package x\n\nfunc f() { sidecar := map[string]any{\"a\": 1, \"b\": 2}; _ = sidecar }\n"
	s := parseSchema(t, `{"properties": {"a": {"type": "integer"}, "c": {"type": "boolean"}}}`)

	out, changed, err := Rewrite([]byte(src), s, DefaultTemplate())
	require.NoError(t, err)
	assert.True(t, changed)

	top, _ := literalKeys(t, out)
	assert.Equal(t, []string{"a", "c"}, top)
}

func TestRewriteEmptyLiteralGetsDetailLiteral(t *testing.T) {
	src := "package x\n\nfunc f() {\n\tsidecar = map[string]any{\n\t}\n}\n"
	s := parseSchema(t, currentSchema)

	out, changed, err := Rewrite([]byte(src), s, DefaultTemplate())
	require.NoError(t, err)
	assert.True(t, changed)

	top, detail := literalKeys(t, out)
	assert.Equal(t, s.Names(), top)
	assert.Equal(t, []string{"model", "provider", "response_id"}, detail)
	assert.Contains(t, squash(string(out)), `"ai_details": map[string]any{"model": "", "provider": "", "response_id": ""},`)
}

func TestRewriteLastEntryOnBraceLine(t *testing.T) {
	src := "package x\n\nvar sidecar = map[string]any{\n\t\"a\": 1}\n"
	s := parseSchema(t, `{"properties": {"a": {"type": "integer"}, "b": {"type": "string"}}}`)

	out, changed, err := Rewrite([]byte(src), s, DefaultTemplate())
	require.NoError(t, err)
	assert.True(t, changed)

	top, _ := literalKeys(t, out)
	assert.Equal(t, []string{"a", "b"}, top)
}

func TestRewriteCustomTemplate(t *testing.T) {
	src := "package x\n\nfunc f(raw map[string]any) {\n\trecord := map[string]any{\n\t\t\"meta\": map[string]any{},\n\t}\n\t_ = record\n}\n"
	s := parseSchema(t, `{"properties": {"meta": {"type": "object", "properties": {"n": {"type": "integer", "default": 3}}}, "name": {"type": "string"}}}`)
	tmpl := Template{Var: "record", Source: "raw", Lookup: "pick", Detail: "meta"}

	out, changed, err := Rewrite([]byte(src), s, tmpl)
	require.NoError(t, err)
	assert.True(t, changed)
	got := squash(string(out))
	assert.Contains(t, got, `"name": pick(raw, "name", ""),`)
	assert.Contains(t, got, `"meta": map[string]any{"n": 3},`)
}

func TestRewriteErrors(t *testing.T) {
	s := parseSchema(t, currentSchema)

	_, _, err := Rewrite([]byte("package x\nfunc {"), s, DefaultTemplate())
	assert.Error(t, err)

	_, _, err = Rewrite([]byte("package x\n\nvar other = map[string]any{}\n"), s, DefaultTemplate())
	assert.True(t, errors.Is(err, ErrLiteralNotFound))
}

func TestRewriteFileDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sidecar.go")
	require.NoError(t, os.WriteFile(path, []byte(generatorSrc), 0o644))
	s := parseSchema(t, currentSchema)

	changed, err := RewriteFile(path, s, DefaultTemplate(), true)
	require.NoError(t, err)
	assert.True(t, changed)
	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, generatorSrc, string(bs))

	changed, err = RewriteFile(path, s, DefaultTemplate(), false)
	require.NoError(t, err)
	assert.True(t, changed)
	bs, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, generatorSrc, string(bs))

	changed, err = RewriteFile(path, s, DefaultTemplate(), false)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDefaultExpr(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: "nil"},
		{in: true, want: "true"},
		{in: "a\"b", want: `"a\"b"`},
		{in: 0, want: "0"},
		{in: 1.5, want: "1.5"},
		{in: float64(2), want: "2.0"},
		{in: json.Number("12"), want: "12"},
		{in: []any{}, want: "[]any{}"},
		{in: []any{"a", json.Number("1")}, want: `[]any{"a", 1}`},
		{in: map[string]any{}, want: "map[string]any{}"},
		{in: map[string]any{"b": false, "a": "x"}, want: `map[string]any{"a": "x", "b": false}`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultExpr(tt.in))
		})
	}
}
