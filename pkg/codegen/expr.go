package codegen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultExpr renders a JSON default value as a Go expression that evaluates to the same
// value inside a map[string]any literal.
func DefaultExpr(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return strconv.Quote(t)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, DefaultExpr(e))
		}
		return "[]any{" + strings.Join(parts, ", ") + "}"
	case map[string]any:
		return mapExpr(t)
	default:
		return fmt.Sprintf("%#v", v)
	}
}

func mapExpr(m map[string]any) string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, entry(k, DefaultExpr(m[k])))
	}
	return "map[string]any{" + strings.Join(parts, ", ") + "}"
}

func entry(key, expr string) string {
	return strconv.Quote(key) + ": " + expr
}
