// marker draws the visible vertices of every annotated frame into a copy
// of the frame.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/internal/marker"
)

func main() {
	fs := flag.NewFlagSet("marker", flag.ExitOnError)
	folder := fs.String("folder", "./renders", "Folder with images and annotations")
	threshold := fs.Float64("threshold", 0.5, "Minimum vertex visibility")
	size := fs.Int("size", 5, "Marker size in pixels")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(os.Args[1:])

	level := "info"
	if *debug {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := marker.DefaultOptions()
	opts.Threshold = *threshold
	opts.Size = *size

	report, err := marker.Annotate(*folder, opts)
	if err != nil {
		logger.Error("marking failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	fmt.Printf("Written: %d\n", len(report.Written))
	fmt.Printf("Skipped: %d\n", report.Skipped)
}
