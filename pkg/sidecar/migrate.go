package sidecar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"k8s.io/klog/v2"

	"github.com/tstromberg/picmeta/pkg/generate"
	"github.com/tstromberg/picmeta/pkg/safeio"
	"github.com/tstromberg/picmeta/pkg/schema"
)

// Migrator brings existing sidecars in line with the current schema.
type Migrator struct {
	Schema schema.Node
	Diff   schema.Diff
	// Enrich asks Generator for values of newly added fields.
	Enrich    bool
	Generator generate.Generator
	Model     string
	DryRun    bool
	// Detail is the nested provenance field; defaults to schema.DetailField.
	Detail string
}

func (m *Migrator) detail() string {
	if m.Detail == "" {
		return schema.DetailField
	}
	return m.Detail
}

// Migrate rewrites the sidecar at path if migration changes it, and reports whether it did.
// In dry-run mode it reports whether it would have, without writing.
func (m *Migrator) Migrate(ctx context.Context, path string) (bool, error) {
	orig, err := safeio.ReadJSON(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	doc := schema.Coerce(safeio.DeepCopy(orig).(map[string]any), m.Schema)
	payload := m.enrichment(ctx, path)
	detail := m.detail()

	for _, name := range m.Diff.AddedTop {
		if name == detail || !isEmpty(doc[name]) {
			continue
		}
		if c, ok := payload[name]; ok && accept(c) {
			klog.V(1).Infof("%s: %q filled from model output", path, name)
			doc[name] = c
		}
	}

	if ds := m.Schema.Property(detail); ds != nil {
		d, ok := doc[detail].(map[string]any)
		if !ok {
			if doc[detail] != nil {
				klog.Warningf("%s: %q is not an object; replacing it", path, detail)
			}
			d = map[string]any{}
		}
		d = schema.Coerce(d, ds)

		if pd, ok := payload[detail].(map[string]any); ok {
			for _, name := range m.Diff.AddedDetail {
				if c, ok := pd[name]; ok && accept(c) {
					d[name] = c
				}
			}
		}
		doc[detail] = d
	}

	if cmp.Equal(orig, doc) {
		klog.V(1).Infof("%s is up to date", path)
		return false, nil
	}

	if m.DryRun {
		klog.Infof("would update %s", path)
		return true, nil
	}

	if err := safeio.WriteJSON(path, doc); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	klog.Infof("updated %s", path)
	return true, nil
}

// enrichment returns model output for the sidecar's image, or nil when enrichment does not
// apply or is unavailable. Failures are logged, never returned.
func (m *Migrator) enrichment(ctx context.Context, path string) map[string]any {
	if !m.Enrich || len(m.Diff.AddedTop) == 0 {
		return nil
	}
	if m.Generator == nil {
		klog.Warningf("%s: enrichment requested but no generator configured", path)
		return nil
	}

	img, err := ImageFor(path)
	if err != nil {
		if errors.Is(err, ErrNoCompanionImage) {
			klog.Warningf("no companion image for %s; skipping enrichment", path)
		} else {
			klog.Warningf("enrichment lookup: %v", err)
		}
		return nil
	}

	out, err := m.Generator.Generate(ctx, img, m.Model)
	if err != nil {
		klog.Warningf("generation failed for %s: %v", img, err)
		return nil
	}
	return out
}

// isEmpty reports whether a current value may be replaced: absent, null or blank.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// accept reports whether a model-supplied candidate carries a value.
func accept(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
