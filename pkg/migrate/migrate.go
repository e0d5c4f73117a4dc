// Package migrate brings existing sidecars and the generator source in line with the
// current sidecar schema.
package migrate

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/tstromberg/picmeta/pkg/codegen"
	"github.com/tstromberg/picmeta/pkg/generate"
	"github.com/tstromberg/picmeta/pkg/safeio"
	"github.com/tstromberg/picmeta/pkg/schema"
	"github.com/tstromberg/picmeta/pkg/sidecar"
)

// Options configure one migration run.
type Options struct {
	SchemaPath   string
	SnapshotPath string
	GalleryDir   string
	// GeneratorPath is the Go file holding the sidecar literal; empty skips the rewrite.
	GeneratorPath string
	Template      codegen.Template

	Batch     []string
	Recursive bool

	Enrich    bool
	Generator generate.Generator
	Model     string

	DryRun bool
}

// Summary reports what a run did, or would have done in dry-run mode.
type Summary struct {
	Targets          int
	Changed          int
	Errors           int
	Warnings         int
	GeneratorUpdated bool
	SnapshotWritten  bool
}

func (s *Summary) String() string {
	return fmt.Sprintf("Scanned %d sidecar file(s). Changed: %d. Errors: %d. Warnings: %d. Generator updated: %t. Snapshot written: %t.",
		s.Targets, s.Changed, s.Errors, s.Warnings, s.GeneratorUpdated, s.SnapshotWritten)
}

// Run migrates every target sidecar to the schema at opts.SchemaPath and returns the loaded
// schema. Only configuration problems are returned as errors; per-file failures are logged
// and counted.
func Run(ctx context.Context, opts Options) (*Summary, schema.Node, error) {
	cur, err := schema.Load(opts.SchemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load schema: %w", err)
	}

	prev, err := schema.LoadSnapshot(opts.SnapshotPath)
	if err != nil {
		return nil, nil, err
	}

	diff := schema.Compute(prev, cur, schema.DetailField)
	for _, line := range diff.Summary(schema.DetailField) {
		klog.Info(line)
	}

	sum := &Summary{}
	sum.GeneratorUpdated = syncGenerator(opts, cur)

	targets, warnings := sidecar.ResolveTargets(opts.GalleryDir, opts.Batch, opts.Recursive)
	sum.Targets = len(targets)
	sum.Warnings = len(warnings)
	switch {
	case len(targets) > 0:
		klog.Infof("scanning %d existing sidecar file(s)...", len(targets))
	case len(opts.Batch) > 0:
		klog.Infof("no sidecar files found for supplied batch inputs")
	default:
		klog.Infof("no sidecar files found in %s", opts.GalleryDir)
	}

	m := &sidecar.Migrator{
		Schema:    cur,
		Diff:      diff,
		Enrich:    opts.Enrich,
		Generator: opts.Generator,
		Model:     opts.Model,
		DryRun:    opts.DryRun,
	}
	for _, t := range targets {
		changed, err := m.Migrate(ctx, t)
		if err != nil {
			klog.Errorf("migrate %s: %v", t, err)
			sum.Errors++
			continue
		}
		if changed {
			sum.Changed++
		}
	}

	if opts.DryRun {
		klog.Infof("dry-run: snapshot not written")
		return sum, cur, nil
	}

	if err := schema.SaveSnapshot(opts.SnapshotPath, cur); err != nil {
		return sum, cur, err
	}
	sum.SnapshotWritten = true
	klog.Infof("snapshot written to %s", opts.SnapshotPath)
	return sum, cur, nil
}

// syncGenerator rewrites the generator source. Failures never abort the run.
func syncGenerator(opts Options, cur schema.Node) bool {
	if opts.GeneratorPath == "" {
		return false
	}

	t := opts.Template
	if t.Var == "" {
		t = codegen.DefaultTemplate()
	}

	changed, err := codegen.RewriteFile(opts.GeneratorPath, cur, t, opts.DryRun)
	if err != nil {
		klog.Warningf("skipping generator update: %v", err)
		return false
	}

	switch {
	case changed && opts.DryRun:
		klog.Infof("dry-run: would update %s with new schema fields", opts.GeneratorPath)
	case changed:
		klog.Infof("updated %s with new schema fields", opts.GeneratorPath)
	default:
		klog.V(1).Infof("%s already matches the schema", opts.GeneratorPath)
	}
	return changed
}

// WatchHandler returns the watch action for the migration tool: generate a record for a new
// image, coerce it to s, and write it as the image's sidecar.
func WatchHandler(s schema.Node, gen generate.Generator, model string, dryRun bool) func(context.Context, string) error {
	return func(ctx context.Context, image string) error {
		path := sidecar.PathFor(image)
		if dryRun {
			klog.Infof("dry-run: would create %s", path)
			return nil
		}

		rec, err := gen.Generate(ctx, image, model)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		if len(rec) == 0 {
			return generate.ErrNoOutput
		}

		doc := schema.Coerce(rec, s)
		if err := safeio.WriteJSON(path, doc); err != nil {
			return fmt.Errorf("write sidecar: %w", err)
		}
		klog.Infof("created sidecar %s", path)
		return nil
	}
}
