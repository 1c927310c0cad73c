package marker

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Monnte/car-dataset-generator/internal/sifter"
)

// ErrEmptyChart is returned when there are no counts to plot.
var ErrEmptyChart = errors.New("no vertex counts to plot")

// SaveChart plots ranked vertex hit counts as a bar chart. The image
// format follows the file extension (png, svg, pdf, ...).
func SaveChart(path, title string, ranked []sifter.VertexCount) error {
	if len(ranked) == 0 {
		return ErrEmptyChart
	}

	values := make(plotter.Values, len(ranked))
	labels := make([]string, len(ranked))
	for i, vc := range ranked {
		values[i] = float64(vc.Count)
		labels[i] = strconv.Itoa(vc.ID)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vertex hits", title)
	p.X.Label.Text = "vertex id"
	p.Y.Label.Text = "hits"

	bars, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return fmt.Errorf("creating bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 40, G: 160, B: 70, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating chart dir: %w", err)
	}
	width := vg.Length(len(ranked))*vg.Points(12) + 2*vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving chart %s: %w", path, err)
	}
	return nil
}
