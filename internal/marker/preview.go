package marker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"go.uber.org/zap"

	"github.com/Monnte/car-dataset-generator/internal/annotation"
	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/internal/sifter"
)

// PreviewOptions selects what a preview shows.
type PreviewOptions struct {
	Histogram string // <model>_points.json written by the sifter
	Image     string // one rendered frame of the same model
	Top       int    // number of highest ranked vertices drawn
	Output    string // defaults to <model>_markers<ext> next to the histogram
	Chart     string // optional bar chart of the ranked counts
	Marker    Options
}

// PreviewResult lists what a preview drew and wrote.
type PreviewResult struct {
	Output   string
	Chart    string
	Ranked   []sifter.VertexCount
	Drawn    int // markers that passed the visibility threshold
	Unmapped int // ranked ids missing from the frame's annotation
}

// Preview draws the top ranked vertices of a histogram onto one frame.
func Preview(opts PreviewOptions) (*PreviewResult, error) {
	if opts.Top <= 0 {
		opts.Top = 64
	}

	counts, err := sifter.LoadCounts(opts.Histogram)
	if err != nil {
		return nil, err
	}
	ranked := sifter.Rank(counts)
	if len(ranked) > opts.Top {
		ranked = ranked[:opts.Top]
	}

	rec, err := annotation.Read(annotation.PathFor(opts.Image))
	if err != nil {
		return nil, err
	}
	img, err := imgio.Open(opts.Image)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", opts.Image, err)
	}

	byID := make(map[int]annotation.Vertex, len(rec.Vertices))
	for _, v := range rec.Vertices {
		byID[v.ID] = v
	}

	res := &PreviewResult{Ranked: ranked}
	selected := make([]annotation.Vertex, 0, len(ranked))
	for _, vc := range ranked {
		v, ok := byID[vc.ID]
		if !ok {
			res.Unmapped++
			continue
		}
		if opts.Marker.Visible(v) {
			res.Drawn++
		}
		selected = append(selected, v)
	}

	marked, err := Draw(img, selected, opts.Marker)
	if err != nil {
		return nil, err
	}

	res.Output = opts.Output
	if res.Output == "" {
		res.Output = defaultPreviewPath(opts.Histogram, opts.Image)
	}
	if err := save(res.Output, marked); err != nil {
		return nil, err
	}

	if opts.Chart != "" {
		if err := SaveChart(opts.Chart, modelName(opts.Histogram), ranked); err != nil {
			return nil, err
		}
		res.Chart = opts.Chart
	}

	logger.Named("preview").Info("preview written",
		zap.String("output", res.Output),
		zap.Int("ranked", len(ranked)),
		zap.Int("drawn", res.Drawn))
	return res, nil
}

func modelName(histPath string) string {
	return strings.TrimSuffix(filepath.Base(histPath), sifter.PointsSuffix)
}

func defaultPreviewPath(histPath, imagePath string) string {
	return OutputPath(filepath.Join(filepath.Dir(histPath), modelName(histPath)+filepath.Ext(imagePath)))
}
