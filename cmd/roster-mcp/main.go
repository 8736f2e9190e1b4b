package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/config"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/logging"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/pipeline"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("roster-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("roster-mcp - MCP server for champion roster screenshots")
			fmt.Println()
			fmt.Println("Usage: roster-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  ROSTER_CONFIG=<file>              YAML, JSON or TOML config file")
			fmt.Println("  ROSTER_DETECTOR=vision            vision, tesseract, gemini or file")
			fmt.Println("  ROSTER_VISION_API_KEY=<key>       Cloud Vision API key")
			fmt.Println("  ROSTER_GEMINI_API_KEY=<key>       Gemini API key")
			fmt.Println("  ROSTER_CATALOG_PATH=<file>        Champion catalog JSON")
			fmt.Println("  ROSTER_CACHE_DIR=<dir>            Reference portrait cache")
			fmt.Println("  ROSTER_FIXED_CLASS=<class>        Assume this class for every cell")
			fmt.Println("  ROSTER_LOG_LEVEL=debug            Enable debug logging")
			fmt.Println("  ROSTER_LOG_FILE=<file>            Also write JSON logs to a rotating file")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// stdout is for MCP protocol
	cleanup, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: os.Stderr})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer cleanup()

	log.Debug().Str("version", Version).Str("built", BuildTime).Str("commit", GitCommit).
		Str("detector", cfg.Detector).Msg("roster MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server error")
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	detector, err := cfg.NewDetector(ctx)
	if err != nil {
		return err
	}
	matcher, catalog, err := cfg.NewMatcher()
	if err != nil {
		return err
	}

	var classifier pipeline.Classifier
	if cfg.FixedClass != "" {
		classifier = pipeline.FixedClass(cfg.FixedClass)
	}

	svc := pipeline.New(detector, classifier, matcher, cfg.Geometry)
	log.Info().Int("champions", catalog.Len()).Msg("catalog loaded")

	return server.New(svc, matcher, catalog).Run(ctx, os.Stdin, os.Stdout)
}
