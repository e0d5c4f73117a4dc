package schema

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tstromberg/picmeta/pkg/safeio"
)

func keys(m map[string]any) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func TestCoerceAddsDefaults(t *testing.T) {
	s := mustParse(t, `{
	  "type": "object",
	  "properties": {
	    "title": {"type": "string"},
	    "description": {"type": "string"},
	    "tags": {"type": "array", "default": []}
	  }
	}`)
	got := Coerce(map[string]any{"title": "A", "description": "B"}, s)
	assert.Equal(t, map[string]any{"title": "A", "description": "B", "tags": []any{}}, got)
}

func TestCoercePrunesWhenAdditionalPropertiesFalse(t *testing.T) {
	s := mustParse(t, `{
	  "type": "object",
	  "additionalProperties": false,
	  "properties": {"title": {"type": "string"}}
	}`)
	got := Coerce(map[string]any{"title": "A", "caption": "old"}, s)
	assert.Equal(t, map[string]any{"title": "A"}, got)
}

func TestCoerceKeepsExtrasWhenAllowed(t *testing.T) {
	s := mustParse(t, `{"properties": {"title": {"type": "string"}}}`)
	got := Coerce(map[string]any{"caption": "kept"}, s)
	assert.Equal(t, map[string]any{"title": "", "caption": "kept"}, got)
}

func TestCoerceRecursesIntoObjects(t *testing.T) {
	s := mustParse(t, baseSchema)
	s["properties"].(map[string]any)["ai_details"].(map[string]any)["additionalProperties"] = false

	got := Coerce(map[string]any{
		"title":      "A",
		"ai_details": map[string]any{"provider": "openai", "legacy": 1},
	}, s)

	assert.Equal(t, map[string]any{
		"title":       "A",
		"description": "",
		"ai_details":  map[string]any{"provider": "openai", "model": ""},
	}, got)
}

func TestCoerceLeavesExistingValuesAlone(t *testing.T) {
	s := mustParse(t, `{"properties": {"title": {"type": "string"}, "ai_details": {"type": "object", "properties": {"a": {"type": "string"}}}}}`)
	got := Coerce(map[string]any{"title": 42, "ai_details": "not an object"}, s)
	assert.Equal(t, map[string]any{"title": 42, "ai_details": "not an object"}, got)
}

func TestCoerceNilDocument(t *testing.T) {
	s := mustParse(t, `{"properties": {"reviewed": {"type": "boolean"}}}`)
	assert.Equal(t, map[string]any{"reviewed": false}, Coerce(nil, s))
}

func TestCoerceIdempotentAndKeySet(t *testing.T) {
	s := mustParse(t, nextSchema)
	docs := []map[string]any{
		{},
		{"title": "A", "description": "gone", "extra": true},
		{"ai_details": map[string]any{"provider": "p", "x": 1}},
		{"title": nil, "tags": []any{"a"}, "ai_details": nil},
	}
	for _, d := range docs {
		once := Coerce(safeio.DeepCopy(d).(map[string]any), s)
		twice := Coerce(safeio.DeepCopy(once).(map[string]any), s)
		assert.Equal(t, once, twice)
		assert.Equal(t, s.Names(), keys(once))
	}
}

func TestCoerceFillsInsertedObjectDefaults(t *testing.T) {
	s := mustParse(t, baseSchema)
	got := Coerce(map[string]any{"title": "A"}, s)
	assert.Equal(t, map[string]any{"provider": "", "model": ""}, got["ai_details"])
}
