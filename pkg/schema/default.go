package schema

import "github.com/tstromberg/picmeta/pkg/safeio"

// Default derives the placeholder value for a property: the explicit default when one is
// declared, otherwise a zero value chosen by type. When several types are allowed, the first
// that yields a non-nil value wins.
func Default(n Node) any {
	if v, ok := n.Default(); ok {
		// Copied so documents never alias the schema's own maps and slices.
		return safeio.DeepCopy(v)
	}

	switch t := n.Type().(type) {
	case string:
		return defaultForType(t)
	case []any:
		for _, c := range t {
			s, ok := c.(string)
			if !ok {
				continue
			}
			if v := defaultForType(s); v != nil {
				return v
			}
		}
	}
	return nil
}

func defaultForType(t string) any {
	switch t {
	case "string":
		return ""
	case "boolean":
		return false
	case "number", "integer":
		return 0
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return nil
	}
}
