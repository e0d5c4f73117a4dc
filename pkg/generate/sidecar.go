package generate

import "time"

// Provenance describes the call that produced a record.
type Provenance struct {
	Provider     string
	Model        string
	ResponseID   string
	FinishReason string
}

// Sidecar builds the record written beside an image from the model's raw output.
//
// The literal below is kept in sync with the sidecar schema by migrate-sidecars, which adds
// and removes entries as the schema changes. Hand edits to existing values are preserved.
func Sidecar(modelObj map[string]any, p Provenance, now time.Time) map[string]any {
	sidecar := map[string]any{
		"title":        valueOr(modelObj, "title", ""),
		"description":  valueOr(modelObj, "description", ""),
		"caption":      valueOr(modelObj, "caption", ""),
		"tags":         valueOr(modelObj, "tags", []any{}),
		"ai_generated": true,
		"ai_details": map[string]any{
			"provider":      p.Provider,
			"model":         p.Model,
			"response_id":   p.ResponseID,
			"finish_reason": p.FinishReason,
		},
		"reviewed":    false,
		"detected_at": now.Unix(),
	}
	return sidecar
}

// valueOr returns m[key], or def when the key is absent or null.
func valueOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return def
}
