// Command roster-scan recognizes roster screenshots in batch and writes one
// JSON result (and, with -debug, an annotated PNG) per input.
//
// Usage: roster-scan [options] <screenshot>...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/config"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/logging"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/pipeline"
)

var (
	flagConfig   = flag.String("config", "", "Config file (overrides ROSTER_CONFIG)")
	flagOut      = flag.String("out", ".", "Output directory")
	flagDebug    = flag.Bool("debug", false, "Keep diagnostics and write annotated overlays")
	flagParallel = flag.Int("j", 0, "Screenshots processed in parallel, 0=batch_parallelism")
	flagVerbose  = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <screenshot>...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *flagVerbose {
		cfg.LogLevel = "debug"
	}
	cleanup, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := run(ctx, cfg, flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("scan failed")
		cleanup()
		os.Exit(1)
	}
	if failed > 0 {
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, paths []string) (int, error) {
	detector, err := cfg.NewDetector(ctx)
	if err != nil {
		return 0, err
	}
	matcher, _, err := cfg.NewMatcher()
	if err != nil {
		return 0, err
	}
	var classifier pipeline.Classifier
	if cfg.FixedClass != "" {
		classifier = pipeline.FixedClass(cfg.FixedClass)
	}
	svc := pipeline.New(detector, classifier, matcher, cfg.Geometry)

	if err := os.MkdirAll(*flagOut, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	images := make([][]byte, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", p, err)
		}
		images[i] = data
	}

	parallel := *flagParallel
	if parallel <= 0 {
		parallel = cfg.BatchParallelism
	}

	failed := 0
	items := svc.ProcessBatch(ctx, images, pipeline.Options{Debug: *flagDebug}, parallel)
	for i, item := range items {
		if item.Err != nil {
			failed++
			log.Error().Err(item.Err).Str("path", paths[i]).Msg("screenshot failed")
			continue
		}
		if err := writeResult(*flagOut, paths[i], item.Result); err != nil {
			return failed, err
		}

		identified := 0
		for j := range item.Result.Grid {
			if item.Result.Grid[j].Identified() {
				identified++
			}
		}
		fmt.Printf("%s: %d cells, %d identified\n", paths[i], len(item.Result.Grid), identified)
	}
	return failed, nil
}

// writeResult stores <name>.json and, when present, <name>.debug.png.
func writeResult(dir, src string, res *pipeline.Result) error {
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", src, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
		return err
	}

	if len(res.DebugImage) > 0 {
		if err := os.WriteFile(filepath.Join(dir, name+".debug.png"), res.DebugImage, 0o644); err != nil {
			return err
		}
	}
	return nil
}
