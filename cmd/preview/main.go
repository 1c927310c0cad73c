// preview draws the highest ranked vertices of a sifter histogram onto one
// rendered frame.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/internal/marker"
)

func main() {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	folder := fs.String("folder", "./renders", "Folder with images and annotations")
	histogram := fs.String("histogram", "", "Histogram file written by sifter (required)")
	frame := fs.String("frame", "000000.png", "Frame image, relative to --folder")
	top := fs.Int("top", 64, "Number of top ranked vertices to draw")
	output := fs.String("output", "", "Output image (default: <model>_markers next to the histogram)")
	chart := fs.String("chart", "", "Also save a bar chart of the ranked counts")
	threshold := fs.Float64("threshold", 0.5, "Minimum vertex visibility")
	fs.Parse(os.Args[1:])

	if *histogram == "" {
		fmt.Fprintln(os.Stderr, "Usage: preview --histogram <model_points.json> [--folder dir] [--frame name]")
		os.Exit(1)
	}

	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := marker.DefaultOptions()
	opts.Threshold = *threshold

	res, err := marker.Preview(marker.PreviewOptions{
		Histogram: *histogram,
		Image:     filepath.Join(*folder, *frame),
		Top:       *top,
		Output:    *output,
		Chart:     *chart,
		Marker:    opts,
	})
	if err != nil {
		logger.Error("preview failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	fmt.Printf("Output:  %s\n", res.Output)
	if res.Chart != "" {
		fmt.Printf("Chart:   %s\n", res.Chart)
	}
	fmt.Printf("Drawn:   %d of %d\n", res.Drawn, len(res.Ranked))
	if res.Unmapped > 0 {
		fmt.Printf("Missing: %d ranked vertices not in frame\n", res.Unmapped)
	}
}
