// Package main is the entry point for the dataset generator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Monnte/car-dataset-generator/internal/config"
	"github.com/Monnte/car-dataset-generator/internal/generator"
	"github.com/Monnte/car-dataset-generator/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Dataset Generator ===", zap.String("config", config.ConfigPath()))
	logger.Sugar.Debugf("Config: %+v", cfg)

	g, err := generator.New(cfg)
	if err != nil {
		logger.Error("failed to create generator", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := g.Run(ctx)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	for _, e := range multierr.Errors(report.Errs) {
		logger.Warn("skipped", zap.Error(e))
	}
	logger.Info("generation finished",
		zap.String("run_id", report.RunID),
		zap.Uint64("seed", report.Seed),
		zap.Int("frames", report.Frames),
		zap.Int("skipped", report.Skipped))

	if report.Frames == 0 {
		logger.Sync()
		os.Exit(1)
	}
}
