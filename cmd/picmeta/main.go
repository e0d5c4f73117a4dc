// picmeta generates titles, descriptions, captions and tags for images, writing them as JSON
// sidecars, embedding them in a copy of the image, or both.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/tstromberg/picmeta/pkg/config"
	"github.com/tstromberg/picmeta/pkg/embed"
	"github.com/tstromberg/picmeta/pkg/generate"
	"github.com/tstromberg/picmeta/pkg/process"
	"github.com/tstromberg/picmeta/pkg/schema"
	"github.com/tstromberg/picmeta/pkg/sidecar"
	"github.com/tstromberg/picmeta/pkg/watch"
	"github.com/tstromberg/picmeta/schemas"
)

// stringList is a flag that may be given more than once.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

var (
	batch      stringList
	csvPath    = flag.String("csv", "", "CSV file with an image_path column, or a single column of paths")
	dir        = flag.String("d", "", "process every supported image in a directory")
	recursive  = flag.Bool("recursive", false, "with -d, include images in subdirectories")
	watchDir   = flag.String("watch", "", "watch a directory and process new images that have no sidecar (requires -auto)")
	auto       bool
	embedFlag  bool
	writeJSON  bool
	full       bool
	model      string
	provider   = flag.String("provider", "", "model provider: openai, gemini or ollama")
	schemaPath = flag.String("schema", "", "sidecar schema used for validation")
	logPath    = flag.String("log", "", "file that records sidecars failing validation")
	configPath = flag.String("config", "", "YAML config file")
)

func init() {
	flag.Var(&batch, "batch", "image to process; may be repeated")
	flag.BoolVar(&auto, "a", false, "generate metadata with a model")
	flag.BoolVar(&auto, "auto", false, "generate metadata with a model")
	flag.BoolVar(&embedFlag, "e", false, "embed metadata into a copy of the image")
	flag.BoolVar(&embedFlag, "embed", false, "embed metadata into a copy of the image")
	flag.BoolVar(&writeJSON, "j", false, "write metadata to a JSON sidecar")
	flag.BoolVar(&writeJSON, "json", false, "write metadata to a JSON sidecar")
	flag.BoolVar(&full, "f", false, "do everything: -auto -embed -json")
	flag.BoolVar(&full, "full", false, "do everything: -auto -embed -json")
	flag.StringVar(&model, "m", "", "model to use (default depends on provider)")
	flag.StringVar(&model, "model", "", "model to use (default depends on provider)")
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Exitf("config: %v", err)
	}
	cfg.ApplyEnv()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "provider":
			cfg.Provider = *provider
		case "m", "model":
			cfg.Model = model
		case "schema":
			cfg.Schema = *schemaPath
		case "log":
			cfg.Log = *logPath
		}
	})

	if flag.NArg() > 1 {
		klog.Exitf("only one positional image may be given; use -batch for more (got %d)", flag.NArg())
	}

	opts := process.Options{Auto: auto, Embed: embedFlag, WriteJSON: writeJSON, Model: cfg.ModelName()}
	if full {
		opts = process.Full(cfg.ModelName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &process.Processor{
		Options:   opts,
		Validator: validator(cfg.Schema),
		Log:       &sidecar.FailureLog{Path: cfg.Log},
	}

	if opts.Auto {
		gen, err := generate.New(ctx, cfg.GenerateConfig())
		if err != nil {
			klog.Exitf("generator: %v", err)
		}
		p.Generator = gen
	}

	if opts.Embed {
		e, err := embed.NewExif()
		if err != nil {
			klog.Exitf("exiftool: %v", err)
		}
		defer func() {
			if err := e.Close(); err != nil {
				klog.Errorf("failed to close exiftool: %v", err)
			}
		}()
		p.Embedder = e
	}

	if *watchDir != "" {
		if !opts.Auto {
			klog.Exitf("-watch requires -auto so metadata can be generated unattended")
		}
		if st, err := os.Stat(*watchDir); err != nil || !st.IsDir() {
			klog.Exitf("directory not found: %s", *watchDir)
		}
		wo := watch.Options{Debounce: cfg.Debounce, Interval: cfg.Interval}
		if err := watch.RunDir(ctx, *watchDir, true, p.WatchEnv(*watchDir, true), wo); err != nil {
			klog.Exitf("watch: %v", err)
		}
		return
	}

	images, err := process.Collect(flag.Arg(0), batch, *csvPath, *dir, *recursive)
	if err != nil {
		klog.Exitf("%v", err)
	}
	if len(images) == 0 {
		flag.Usage()
		klog.Exitf("no images provided: supply a path, -batch, -csv, or -d")
	}

	klog.Infof("processing %d image(s) with provider=%s model=%s", len(images), cfg.Provider, opts.Model)
	results := make([]process.Result, 0, len(images))
	for _, img := range images {
		if ctx.Err() != nil {
			klog.Warningf("interrupted; %d image(s) not processed", len(images)-len(results))
			break
		}
		results = append(results, p.Process(ctx, img))
	}

	sum := process.Tally(results)
	fmt.Println(sum.String())
	if sum.Errors > 0 {
		klog.Warningf("finished with some errors; review the log above")
	}
}

// validator compiles the schema at path, falling back to the bundled schema when the file
// does not exist.
func validator(path string) *schema.Validator {
	var (
		s   schema.Node
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		s, err = schema.Load(path)
	} else {
		klog.V(1).Infof("%s not found; using the bundled sidecar schema", path)
		s, err = schema.Parse(schemas.Sidecar)
	}
	if err != nil {
		klog.Exitf("schema: %v", err)
	}

	v, err := schema.NewValidator(s)
	if err != nil {
		klog.Exitf("schema: %v", err)
	}
	return v
}
