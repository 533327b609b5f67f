package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/config"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/metrics"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
	"github.com/ironsheep/docscan-mcp/internal/server"
	"github.com/ironsheep/docscan-mcp/internal/vision"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("docscan-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Vision backends: %s\n", strings.Join(vision.Available(), ", "))
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	fs := flag.NewFlagSet("docscan-mcp", flag.ExitOnError)
	fs.Usage = usage
	configPath := fs.String("config", "", "path to a YAML config file")
	_ = fs.Parse(os.Args[1:])

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	args := fs.Args()
	if len(args) > 0 {
		switch args[0] {
		case "config":
			out, err := cfg.YAML()
			if err != nil {
				logger.Fatal("failed to render config", zap.Error(err))
			}
			fmt.Print(string(out))
			return
		case "rectify":
			code := runRectify(logger, cfg, args[1:])
			_ = logger.Sync()
			os.Exit(code)
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
			usage()
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, m := newPipeline(logger, cfg)
	if cfg.Metrics.Address != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Address, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("vision", cfg.Vision.Backend),
	)

	srv := server.New(p,
		server.WithLogger(logger),
		server.WithBatchConcurrency(cfg.Batch.Concurrency),
		server.WithVersion(Version),
	)

	// a pending stdin read does not observe ctx
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}
}

func usage() {
	fmt.Println("docscan-mcp - MCP server for document detection and rectification")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  docscan-mcp [--config file]                 Serve MCP over stdin/stdout")
	fmt.Println("  docscan-mcp [--config file] rectify [flags] image")
	fmt.Println("  docscan-mcp [--config file] config          Print the effective configuration")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Rectify flags:")
	fmt.Println("  -o file          Rectified page (default <image>_rectified.png)")
	fmt.Println("  -overlay file    Photo with the detected outline drawn on it")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  DOCSCAN_CONFIG=file          Config file when --config is not given")
	fmt.Println("  DOCSCAN_LOG_LEVEL=debug      Enable debug logging")
	fmt.Println("  DOCSCAN_<SECTION>_<KEY>      Override any config key, e.g. DOCSCAN_OUTPUT_CROP_RATIO")
}

// newLogger logs to stderr; stdout carries the MCP protocol.
func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("DOCSCAN_LOG_LEVEL") == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func newPipeline(logger *zap.Logger, cfg *config.Config) (*rectify.Pipeline, *metrics.Metrics) {
	v, err := vision.New(cfg.Vision.Backend)
	if err != nil {
		logger.Fatal("failed to create vision backend", zap.Error(err))
	}
	m := metrics.New()
	p, err := rectify.New(v, cfg.Pipeline(), logger, m)
	if err != nil {
		logger.Fatal("failed to create pipeline", zap.Error(err))
	}
	return p, m
}

// runRectify processes a single image from the command line and returns the
// process exit code.
func runRectify(logger *zap.Logger, cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("rectify", flag.ExitOnError)
	out := fs.String("o", "", "rectified page output path")
	overlay := fs.String("overlay", "", "overlay output path")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "rectify needs exactly one image")
		return 2
	}
	input := fs.Arg(0)
	if *out == "" {
		*out = strings.TrimSuffix(input, filepath.Ext(input)) + "_rectified.png"
	}

	p, _ := newPipeline(logger, cfg)
	img, err := imaging.NewImageCache().Load(input)
	if err != nil {
		logger.Error("failed to load image", zap.String("path", input), zap.Error(err))
		return 1
	}

	res := p.Rectify(context.Background(), img)
	if !res.OK() {
		fmt.Fprintf(os.Stderr, "%s: %v\n", input, res.Err)
		return 1
	}
	if err := imaging.Save(res.Rectified, *out); err != nil {
		logger.Error("failed to save page", zap.Error(err))
		return 1
	}
	if *overlay != "" {
		if err := imaging.Save(res.Annotated, *overlay); err != nil {
			logger.Error("failed to save overlay", zap.Error(err))
			return 1
		}
	}

	b := res.Rectified.Bounds()
	fmt.Printf("%s: %s via %s tier, %dx%d -> %s\n", input, res.State, res.Tier, b.Dx(), b.Dy(), *out)
	return 0
}
