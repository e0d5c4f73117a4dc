// migrate-sidecars brings existing image sidecars and the generator source in line with the
// current sidecar schema, then optionally watches a directory for new images.
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
	"github.com/tstromberg/picmeta/pkg/generate"
	"github.com/tstromberg/picmeta/pkg/migrate"
	"github.com/tstromberg/picmeta/pkg/watch"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

var (
	schemaPath = flag.String("schema", "", "sidecar schema file (JSON or YAML)")
	gallery    = flag.String("gallery", "", "directory containing image sidecars")
	snapshot   = flag.String("snapshot", "", "where the previous schema snapshot is stored")
	generator  = flag.String("generator", "", "Go source file holding the sidecar literal; empty uses the configured path, \"-\" skips")
	enrich     = flag.Bool("enrich", false, "ask the model to fill newly added fields")
	model      = flag.String("model", "", "model to use with -enrich (default depends on provider)")
	provider   = flag.String("provider", "", "model provider: openai, gemini or ollama")
	batch      stringList
	recursive  = flag.Bool("recursive", false, "descend into subdirectories of -gallery, -batch and -watch")
	watchDir   = flag.String("watch", "", "after migrating, watch a directory for new images without sidecars (requires -enrich)")
	dryRun     = flag.Bool("dry-run", false, "report changes without writing files or the snapshot")
	configPath = flag.String("config", "", "YAML config file")
)

func init() {
	flag.Var(&batch, "batch", "sidecar, image, directory or CSV list to migrate; may be repeated")
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
		case "schema":
			cfg.Schema = *schemaPath
		case "gallery":
			cfg.Gallery = *gallery
		case "snapshot":
			cfg.Snapshot = *snapshot
		case "generator":
			cfg.Generator = *generator
		case "model":
			cfg.Model = *model
		case "provider":
			cfg.Provider = *provider
		}
	})
	if cfg.Generator == "-" {
		cfg.Generator = ""
	}

	if *watchDir != "" {
		if !*enrich {
			klog.Exitf("-watch requires -enrich so metadata can be generated for new images")
		}
		if st, err := os.Stat(*watchDir); err != nil || !st.IsDir() {
			klog.Exitf("watch directory not found or not a directory: %s", *watchDir)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gen generate.Generator
	if *enrich {
		gen, err = generate.New(ctx, cfg.GenerateConfig())
		switch {
		case err != nil && *watchDir != "":
			klog.Exitf("generator: %v", err)
		case err != nil:
			klog.Warningf("enrichment disabled: %v", err)
		}
	}

	sum, s, err := migrate.Run(ctx, migrate.Options{
		SchemaPath:    cfg.Schema,
		SnapshotPath:  cfg.Snapshot,
		GalleryDir:    cfg.Gallery,
		GeneratorPath: cfg.Generator,
		Batch:         batch,
		Recursive:     *recursive,
		Enrich:        gen != nil,
		Generator:     gen,
		Model:         cfg.ModelName(),
		DryRun:        *dryRun,
	})
	if err != nil {
		klog.Exitf("migration failed: %v", err)
	}
	fmt.Println(sum.String())

	if *watchDir == "" {
		return
	}

	h := migrate.WatchHandler(s, gen, cfg.ModelName(), *dryRun)
	wo := watch.Options{Debounce: cfg.Debounce, Interval: cfg.Interval}
	if err := watch.RunDir(ctx, *watchDir, *recursive, watch.DirEnv(*watchDir, *recursive, h), wo); err != nil {
		klog.Exitf("watch: %v", err)
	}
}
