// sifter matches detected image keypoints against annotated vertices and
// writes one vertex hit histogram per model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Monnte/car-dataset-generator/internal/keypoint"
	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/internal/sifter"
)

func main() {
	fs := flag.NewFlagSet("sifter", flag.ExitOnError)
	folder := fs.String("folder", "./renders", "Folder with images and annotations")
	output := fs.String("output", "", "Histogram folder (default: --folder)")
	tolerance := fs.Float64("tolerance", 1, "Maximum keypoint to vertex distance in pixels")
	threshold := fs.Float64("threshold", 0.5, "Minimum vertex visibility")
	workers := fs.Int("workers", 0, "Images processed concurrently (0 = NumCPU)")
	maxKeypoints := fs.Int("max-keypoints", 0, "Strongest keypoints kept per image (0 = all)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	logFile := fs.String("log-file", "", "Also log to this file")
	fs.Parse(os.Args[1:])

	level := "info"
	if *debug {
		level = "debug"
	}
	if err := logger.Init(level, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := sifter.Run(ctx, sifter.Options{
		Folder:    *folder,
		OutputDir: *output,
		Match: &sifter.MatchOptions{
			Tolerance:           *tolerance,
			VisibilityThreshold: *threshold,
		},
		Workers:  *workers,
		Detector: keypoint.NewHarris(*maxKeypoints),
	})
	if err != nil {
		logger.Error("sifting failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	for _, model := range report.Histogram.Models() {
		fmt.Printf("%-20s %6d hits\n", model, report.Histogram.Total(model))
		for _, vc := range report.Histogram.Top(model, 10) {
			fmt.Printf("  vertex %-8d %d\n", vc.ID, vc.Count)
		}
	}
}
