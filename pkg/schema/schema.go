// Package schema models the JSON Schema that describes image sidecars, and the
// operations the migration tooling needs on it: defaults, diffing and coercion.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tstromberg/picmeta/pkg/safeio"
)

// DetailField is the nested object property holding AI provenance bookkeeping.
const DetailField = "ai_details"

// Node is a read-only view over one schema object (the root or any nested property).
type Node map[string]any

// Parse decodes a schema from JSON or YAML bytes.
func Parse(bs []byte) (Node, error) {
	trimmed := bytes.TrimSpace(bs)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		m, err := safeio.DecodeObject(trimmed)
		if err != nil {
			return nil, err
		}
		return Node(m), nil
	}

	var tmp any
	if err := yaml.Unmarshal(bs, &tmp); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	// Round trip through JSON so YAML schemas share the exact value types JSON schemas use.
	jb, err := json.Marshal(tmp)
	if err != nil {
		return nil, fmt.Errorf("encode yaml as json: %w", err)
	}
	m, err := safeio.DecodeObject(jb)
	if err != nil {
		return nil, err
	}
	return Node(m), nil
}

// Load reads the schema at path.
func Load(path string) (Node, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	n, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return n, nil
}

// Properties returns the node's property map. Entries that are not objects are ignored.
func (n Node) Properties() map[string]Node {
	props := map[string]Node{}
	raw, ok := n["properties"].(map[string]any)
	if !ok {
		return props
	}
	for k, v := range raw {
		if m, ok := v.(map[string]any); ok {
			props[k] = Node(m)
		} else {
			props[k] = Node{}
		}
	}
	return props
}

// Property returns a single property, or nil when absent.
func (n Node) Property(name string) Node {
	raw, ok := n["properties"].(map[string]any)
	if !ok {
		return nil
	}
	v, ok := raw[name]
	if !ok {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return Node(m)
	}
	return Node{}
}

// HasProperty reports whether name is declared under properties.
func (n Node) HasProperty(name string) bool {
	raw, ok := n["properties"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = raw[name]
	return ok
}

// Names returns property names in sorted order.
func (n Node) Names() []string {
	props := n.Properties()
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AdditionalProperties reports whether keys outside properties are allowed. Only an
// explicit boolean false disallows them.
func (n Node) AdditionalProperties() bool {
	if b, ok := n["additionalProperties"].(bool); ok {
		return b
	}
	return true
}

// Type returns the declared type: a string, a list of types, or nil.
func (n Node) Type() any {
	return n["type"]
}

// IsObject reports whether the node declares type "object".
func (n Node) IsObject() bool {
	s, ok := n["type"].(string)
	return ok && s == "object"
}

// Default returns the explicit default, if one is declared.
func (n Node) Default() (any, bool) {
	v, ok := n["default"]
	return v, ok
}

// Detail returns the nested detail object schema, or nil when the schema has none.
func (n Node) Detail(field string) Node {
	if n == nil {
		return nil
	}
	return n.Property(field)
}
