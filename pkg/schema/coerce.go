package schema

// Coerce brings doc's key set in line with s: keys outside s's properties are dropped when
// additional properties are disallowed, missing properties are added with their derived
// default, and object-typed properties holding objects are coerced recursively.
// Existing values are never converted to another type.
//
// doc is modified in place and returned; a nil doc yields a new map.
func Coerce(doc map[string]any, s Node) map[string]any {
	if doc == nil {
		doc = map[string]any{}
	}

	if !s.AdditionalProperties() {
		for k := range doc {
			if !s.HasProperty(k) {
				delete(doc, k)
			}
		}
	}

	for name, sub := range s.Properties() {
		v, ok := doc[name]
		if !ok {
			v = Default(sub)
			doc[name] = v
		}
		if !sub.IsObject() {
			continue
		}
		// Freshly inserted object defaults are filled in too, so a second pass adds nothing.
		if m, ok := v.(map[string]any); ok {
			doc[name] = Coerce(m, sub)
		}
	}
	return doc
}
