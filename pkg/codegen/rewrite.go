// Package codegen keeps the sidecar record literal in the generator source in sync with
// the sidecar schema.
//
// The literal is treated as a structured template: one entry per schema property, each
// holding an expression that produces the value. Entries are added and removed as the
// schema evolves; expressions already present are never touched.
package codegen

import (
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tstromberg/picmeta/pkg/safeio"
	"github.com/tstromberg/picmeta/pkg/schema"
)

// ErrLiteralNotFound is returned when the source has no literal assigned to the template variable.
var ErrLiteralNotFound = errors.New("record literal not found")

// Template names the parts of the construction site.
type Template struct {
	// Var is the variable the record literal is assigned to.
	Var string
	// Source is the in-scope variable holding the model's raw output.
	Source string
	// Lookup is a func(source, key, fallback) used for new top-level entries.
	Lookup string
	// Detail is the key of the nested detail literal.
	Detail string
}

// DefaultTemplate matches the literal in pkg/generate.
func DefaultTemplate() Template {
	return Template{
		Var:    "sidecar",
		Source: "modelObj",
		Lookup: "valueOr",
		Detail: schema.DetailField,
	}
}

// edit replaces src[start:end] with text.
type edit struct {
	start, end int
	text       string
}

type rewriter struct {
	src   []byte
	file  *token.File
	t     Template
	edits []edit
}

// Rewrite returns src with the template literal synced to s. When nothing needed to change,
// it returns src unmodified and changed=false. The result is always gofmt'd, parseable source.
func Rewrite(src []byte, s schema.Node, t Template) ([]byte, bool, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		return nil, false, fmt.Errorf("parse: %w", err)
	}

	lit := findLiteral(f, t.Var)
	if lit == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrLiteralNotFound, t.Var)
	}

	r := &rewriter{src: src, file: fset.File(f.Pos()), t: t}
	r.sync(lit, s, true)
	if len(r.edits) == 0 {
		return src, false, nil
	}

	out, err := format.Source(r.apply())
	if err != nil {
		return nil, false, fmt.Errorf("format rewritten source: %w", err)
	}
	return out, true, nil
}

// RewriteFile syncs the literal in the Go file at path. The file is only written when the
// literal changed and dryRun is false.
func RewriteFile(path string, s schema.Node, t Template, dryRun bool) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read: %w", err)
	}

	out, changed, err := Rewrite(src, s, t)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if !changed || dryRun {
		return changed, nil
	}

	if err := safeio.WriteFile(path, out); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// findLiteral returns the first composite literal assigned to name, via `name := ...`,
// `name = ...` or `var name = ...`.
func findLiteral(f *ast.File, name string) *ast.CompositeLit {
	var found *ast.CompositeLit
	ast.Inspect(f, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.AssignStmt:
			if len(x.Lhs) != 1 || len(x.Rhs) != 1 {
				return true
			}
			if id, ok := x.Lhs[0].(*ast.Ident); ok && id.Name == name {
				if cl, ok := ast.Unparen(x.Rhs[0]).(*ast.CompositeLit); ok {
					found = cl
				}
			}
		case *ast.ValueSpec:
			if len(x.Names) != 1 || len(x.Values) != 1 || x.Names[0].Name != name {
				return true
			}
			if cl, ok := ast.Unparen(x.Values[0]).(*ast.CompositeLit); ok {
				found = cl
			}
		}
		return true
	})
	return found
}

// literalEntry is one string-keyed entry and the byte range it owns, which includes its
// leading comments, trailing comma and any comment on the rest of its line.
type literalEntry struct {
	key        string
	kv         *ast.KeyValueExpr
	start, end int
	comma      bool
}

func (r *rewriter) off(p token.Pos) int {
	return r.file.Offset(p)
}

func (r *rewriter) line(p token.Pos) int {
	return r.file.Line(p)
}

// sync brings lit's key set in line with s. At the top level, new entries prefer the model's
// raw output; inside the detail literal they are plain defaults.
func (r *rewriter) sync(lit *ast.CompositeLit, s schema.Node, top bool) {
	entries := r.entries(lit)

	present := map[string]bool{}
	var lastKept *literalEntry
	for i := range entries {
		e := &entries[i]
		if e.key == "" {
			lastKept = e
			continue
		}
		if !s.HasProperty(e.key) {
			klog.V(1).Infof("removing %q from %s literal", e.key, r.t.Var)
			r.edits = append(r.edits, edit{start: e.start, end: e.end})
			continue
		}
		present[e.key] = true
		lastKept = e

		if top && e.key == r.t.Detail {
			if nested, ok := ast.Unparen(e.kv.Value).(*ast.CompositeLit); ok {
				r.sync(nested, s.Property(e.key), false)
			}
		}
	}

	var added []string
	for _, name := range s.Names() {
		if present[name] {
			continue
		}
		klog.V(1).Infof("adding %q to %s literal", name, r.t.Var)
		added = append(added, entry(name, r.valueFor(name, s.Property(name), top)))
	}
	if len(added) == 0 {
		return
	}

	r.edits = append(r.edits, r.insertion(lit, entries, lastKept, added))
}

// valueFor returns the expression for a newly inserted entry.
func (r *rewriter) valueFor(name string, sub schema.Node, top bool) string {
	if !top {
		return DefaultExpr(schema.Default(sub))
	}
	if name == r.t.Detail {
		parts := []string{}
		for _, dn := range sub.Names() {
			parts = append(parts, entry(dn, DefaultExpr(schema.Default(sub.Property(dn)))))
		}
		return "map[string]any{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%s(%s, %s, %s)", r.t.Lookup, r.t.Source, strconv.Quote(name), DefaultExpr(schema.Default(sub)))
}

// insertion builds the edit that appends added entries after the last existing entry.
func (r *rewriter) insertion(lit *ast.CompositeLit, entries []literalEntry, lastKept *literalEntry, added []string) edit {
	multiLine := r.line(lit.Rbrace) > r.line(lit.Lbrace)

	at := r.off(lit.Lbrace) + 1
	if len(entries) > 0 {
		at = entries[len(entries)-1].end
	}
	// Place new entries on their own line just above the closing brace.
	if tail := string(r.src[at:r.off(lit.Rbrace)]); multiLine {
		if i := strings.LastIndexByte(tail, '\n'); i >= 0 {
			at += i + 1
		}
	}

	needsComma := lastKept != nil && !lastKept.comma
	var b strings.Builder
	if multiLine {
		if needsComma {
			b.WriteString(",\n")
		}
		for _, a := range added {
			b.WriteString(a)
			b.WriteString(",\n")
		}
		return edit{start: at, end: at, text: b.String()}
	}

	if needsComma {
		b.WriteString(", ")
	}
	b.WriteString(strings.Join(added, ", "))
	return edit{start: at, end: at, text: b.String()}
}

// entries partitions the literal body into per-element byte ranges.
func (r *rewriter) entries(lit *ast.CompositeLit) []literalEntry {
	var out []literalEntry

	start := r.off(lit.Lbrace) + 1
	if len(lit.Elts) > 0 {
		first := r.off(lit.Elts[0].Pos())
		if nl := strings.IndexByte(string(r.src[start:first]), '\n'); nl >= 0 {
			start += nl + 1
		}
	}

	for _, elt := range lit.Elts {
		e := literalEntry{start: start}
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			if bl, ok := kv.Key.(*ast.BasicLit); ok && bl.Kind == token.STRING {
				if k, err := strconv.Unquote(bl.Value); err == nil {
					e.key = k
					e.kv = kv
				}
			}
		}
		e.end, e.comma = r.entryEnd(r.off(elt.End()))
		out = append(out, e)
		start = e.end
	}
	return out
}

// entryEnd finds where an element's range stops: after its comma, swallowing the rest of the
// line when only whitespace or a line comment follows.
func (r *rewriter) entryEnd(i int) (int, bool) {
	src := r.src
	j := skipSpaceAndComments(src, i)
	if j >= len(src) || src[j] != ',' {
		return i, false
	}
	end := j + 1

	k := end
	for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
		k++
	}
	if k+1 < len(src) && src[k] == '/' && src[k+1] == '/' {
		for k < len(src) && src[k] != '\n' {
			k++
		}
	}
	if k < len(src) && src[k] == '\n' {
		return k + 1, true
	}
	return end, true
}

func skipSpaceAndComments(src []byte, i int) int {
	for i < len(src) {
		switch {
		case src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r':
			i++
		case i+1 < len(src) && src[i] == '/' && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case i+1 < len(src) && src[i] == '/' && src[i+1] == '*':
			end := strings.Index(string(src[i+2:]), "*/")
			if end < 0 {
				return len(src)
			}
			i += end + 4
		default:
			return i
		}
	}
	return i
}

// apply splices all edits into a copy of the source, last edit first so offsets stay valid.
func (r *rewriter) apply() []byte {
	edits := append([]edit(nil), r.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].start > edits[j].start
	})

	out := append([]byte(nil), r.src...)
	for _, e := range edits {
		var b []byte
		b = append(b, out[:e.start]...)
		b = append(b, e.text...)
		b = append(b, out[e.end:]...)
		out = b
	}
	return out
}
