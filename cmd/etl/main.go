// Command etl runs the impact pipeline once: load the raw extracts,
// normalize, aggregate, merge and publish the clean artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"impactetl/internal/config"
	"impactetl/internal/infrastructure"
	"impactetl/internal/normalize"
	"impactetl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "config.yaml", "path to the YAML config file")
	baseDir := flag.String("base", "", "base data directory (overrides config)")
	rawDir := flag.String("raw", "", "raw extract directory (overrides config)")
	cleanDir := flag.String("clean", "", "clean output directory (overrides config)")
	bootstrap := flag.Bool("bootstrap", true, "generate missing raw extracts from the seeded generator")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := normalize.ValidateAliases(); err != nil {
		return fmt.Errorf("validating column aliases: %w", err)
	}
	if *baseDir != "" {
		cfg.Paths.BaseDir = *baseDir
	}
	if *rawDir != "" {
		cfg.Paths.RawDir = *rawDir
	}
	if *cleanDir != "" {
		cfg.Paths.CleanDir = *cleanDir
	}
	cfg.Pipeline.BootstrapMissing = cfg.Pipeline.BootstrapMissing && *bootstrap

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return fmt.Errorf("resolving paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	runID := uuid.NewString()
	ctx := infrastructure.WithRunID(context.Background(), runID)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Spans go to the trace log next to the pipeline log.
	traceOut, err := os.OpenFile(paths.GetLogPath("trace.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Warn("failed to open trace log, tracing to discard", "error", err)
		traceOut = nil
	}
	var traceWriter io.Writer = io.Discard
	if traceOut != nil {
		traceWriter = traceOut
		defer traceOut.Close()
	}
	providers, err := infrastructure.InitializeTracing(traceWriter, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	logger.InfoContext(ctx, "starting pipeline run",
		slog.String("run_id", runID),
		slog.String("raw_dir", paths.RawDir),
		slog.String("clean_dir", paths.CleanDir),
		slog.Bool("bootstrap", cfg.Pipeline.BootstrapMissing))

	steps := pipeline.DefaultSteps(cfg, paths, logger)
	runner := pipeline.NewRunner(steps, logger, providers.Tracer)

	state, err := runner.Run(ctx, runID)
	if err != nil {
		return err
	}

	for _, step := range state.Steps {
		logger.InfoContext(ctx, "step summary",
			slog.String("step", step.ID),
			slog.String("status", string(step.CurrentStatus())),
			slog.Duration("duration", step.Duration()))
	}
	logger.InfoContext(ctx, "artifacts published",
		slog.String("master", paths.MasterDatasetPath()),
		slog.String("quality_report", paths.QualityReportPath()))
	return nil
}
