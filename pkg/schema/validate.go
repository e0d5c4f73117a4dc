package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Result holds the outcome of validating one document.
type Result struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError is a single schema violation.
type ValidationError struct {
	Path    string
	Message string
}

// Error joins all violations into a single message.
func (r *Result) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Path, e.Message))
	}
	return strings.Join(msgs, "; ")
}

// Validator wraps a compiled schema for repeated validation.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles n.
func NewValidator(n Node) (*Validator, error) {
	bs, err := json.Marshal(map[string]any(n))
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	sch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(bs))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// Validate checks doc against the compiled schema.
func (v *Validator) Validate(doc any) (*Result, error) {
	if v == nil || v.schema == nil {
		return nil, fmt.Errorf("validator not initialised")
	}
	bs, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(bs))
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	r := &Result{Valid: res.Valid()}
	for _, e := range res.Errors() {
		field := e.Field()
		if field == "" || field == "(root)" {
			field = "root"
		}
		r.Errors = append(r.Errors, ValidationError{Path: field, Message: e.Description()})
	}
	return r, nil
}
