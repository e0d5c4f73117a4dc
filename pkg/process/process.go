// Package process generates metadata for images and writes it out as sidecars, embedded
// copies, or both.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/picmeta/pkg/embed"
	"github.com/tstromberg/picmeta/pkg/generate"
	"github.com/tstromberg/picmeta/pkg/safeio"
	"github.com/tstromberg/picmeta/pkg/schema"
	"github.com/tstromberg/picmeta/pkg/sidecar"
	"github.com/tstromberg/picmeta/pkg/watch"
)

// Options select what happens to each image.
type Options struct {
	// Auto generates metadata with a model instead of prompting for it.
	Auto bool
	// Embed writes the metadata into a copy of the image.
	Embed bool
	// WriteJSON writes the metadata as a sidecar.
	WriteJSON bool
	Model     string
}

// Full enables every action.
func Full(model string) Options {
	return Options{Auto: true, Embed: true, WriteJSON: true, Model: model}
}

// Result is the outcome for one image.
type Result struct {
	Success        bool
	SidecarWritten bool
	// Excluded images were missing or not regular files and are not counted as errors.
	Excluded bool
}

// Processor handles images one at a time.
type Processor struct {
	Options
	Generator generate.Generator
	Embedder  embed.Embedder
	Validator *schema.Validator
	Log       *sidecar.FailureLog

	// In and Out are used for manual entry; they default to stdin and stdout.
	In  io.Reader
	Out io.Writer
	Now func() time.Time

	in *bufio.Reader
}

// Process handles a single image. Failures are logged and reflected in the Result.
func (p *Processor) Process(ctx context.Context, image string) Result {
	st, err := os.Stat(image)
	if err != nil {
		klog.Errorf("file not found: %s", image)
		return Result{Excluded: true}
	}
	if !st.Mode().IsRegular() {
		klog.Warningf("skipping non-file: %s", image)
		return Result{Excluded: true}
	}

	record, err := p.record(ctx, image)
	if err != nil {
		klog.Errorf("%s: %v", image, err)
		return Result{}
	}

	p.validate(image, record)

	if p.Embed {
		if p.Embedder == nil {
			klog.Errorf("%s: embedding requested but no embedder configured", image)
		} else if _, err := p.Embedder.Embed(image, record); err != nil {
			klog.Errorf("failed to embed metadata in %s: %v", image, err)
		}
	}

	res := Result{Success: true}
	if p.WriteJSON {
		path := sidecar.PathFor(image)
		if err := safeio.WriteJSON(path, record); err != nil {
			klog.Errorf("write sidecar for %s: %v", image, err)
			return Result{}
		}
		klog.Infof("JSON sidecar saved as %s", path)
		res.SidecarWritten = true

		if p.Validator != nil {
			ok, err := sidecar.ValidateFile(p.Validator, path, p.Log)
			switch {
			case err != nil:
				klog.Warningf("validate %s: %v", path, err)
			case !ok:
				klog.Warningf("%s failed schema validation; kept file", path)
			}
		}
	}

	klog.Infof("finished %s", image)
	return res
}

// Handle processes image for the watch loop. A failed image is reported as an error so it is
// retried.
func (p *Processor) Handle(ctx context.Context, image string) error {
	if r := p.Process(ctx, image); !r.Success {
		return fmt.Errorf("processing %s failed", image)
	}
	return nil
}

// WatchEnv returns the watch environment for dir. Embedded copies written by Process are
// left out of the listing so they are never described in turn.
func (p *Processor) WatchEnv(dir string, recursive bool) watch.Env {
	env := watch.DirEnv(dir, recursive, p.Handle)
	list := env.List
	env.List = func() ([]string, error) {
		images, err := list()
		if err != nil {
			return nil, err
		}
		out := images[:0]
		for _, img := range images {
			if embed.IsOutput(img) {
				klog.V(2).Infof("ignoring embedded copy %s", img)
				continue
			}
			out = append(out, img)
		}
		return out, nil
	}
	return env
}

func (p *Processor) record(ctx context.Context, image string) (map[string]any, error) {
	if p.Auto {
		if p.Generator == nil {
			return nil, errors.New("no generator configured")
		}
		klog.Infof("generating metadata for %s", image)
		return p.Generator.Generate(ctx, image, p.Model)
	}

	klog.Infof("manual mode for %s", image)
	fmt.Fprintf(p.out(), "Metadata for %s\n", filepath.Base(image))
	title, err := p.ask("Title: ")
	if err != nil {
		return nil, err
	}
	desc, err := p.ask("Description: ")
	if err != nil {
		return nil, err
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return map[string]any{
		"title":        title,
		"description":  desc,
		"ai_generated": false,
		"ai_details":   map[string]any{},
		"reviewed":     false,
		"detected_at":  now().Unix(),
	}, nil
}

func (p *Processor) out() io.Writer {
	if p.Out == nil {
		return os.Stdout
	}
	return p.Out
}

func (p *Processor) ask(label string) (string, error) {
	if p.in == nil {
		in := p.In
		if in == nil {
			in = os.Stdin
		}
		p.in = bufio.NewReader(in)
	}

	fmt.Fprint(p.out(), label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// validate reports whether record matches the schema. Problems are logged, never fatal.
func (p *Processor) validate(image string, record map[string]any) {
	if p.Validator == nil {
		return
	}
	res, err := p.Validator.Validate(record)
	if err != nil {
		klog.Warningf("validate %s: %v", image, err)
		return
	}
	if !res.Valid {
		klog.Warningf("metadata for %s failed validation: %s", image, res.Error())
		return
	}
	klog.V(1).Infof("metadata for %s is valid", image)
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Total    int
	Sidecars int
	Errors   int
	Excluded int
}

// Tally summarizes results.
func Tally(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Excluded:
			s.Excluded++
		case !r.Success:
			s.Errors++
		}
		if r.SidecarWritten {
			s.Sidecars++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("Processed %d %s. Generated: %d JSON sidecar %s. Errors: %d. Excluded: %d.",
		s.Total, plural(s.Total, "file"), s.Sidecars, plural(s.Sidecars, "file"), s.Errors, s.Excluded)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
