// Package marker draws annotated vertices onto rendered frames for visual
// inspection of annotations and sifter results.
package marker

import (
	"fmt"
	"image"
	gomath "math"

	"github.com/gogpu/gg"

	"github.com/Monnte/car-dataset-generator/internal/annotation"
)

// Options controls marker appearance.
type Options struct {
	Size      int     // cross extent in pixels
	Width     float64 // stroke width
	Threshold float64 // vertices at or below this visibility are not drawn
}

// DefaultOptions returns 5 pixel crosses, 1 pixel wide, for vertices with
// visibility above 0.5.
func DefaultOptions() Options {
	return Options{Size: 5, Width: 1, Threshold: 0.5}
}

// Color returns the marker color for a visibility score: green at 1,
// shifting to blue as the score drops.
func Color(visibility float64) gg.RGBA {
	v := gomath.Max(0, gomath.Min(1, visibility))
	return gg.RGB(0, v, 1-v)
}

// Visible reports whether a vertex gets a marker.
func (o Options) Visible(v annotation.Vertex) bool {
	s := v.Visibility()
	return s != 0 && s > o.Threshold
}

// Draw returns a copy of img with a cross at every visible vertex.
// Annotation y is measured from the bottom edge and is flipped to image
// rows.
func Draw(img image.Image, vertices []annotation.Vertex, opts Options) (image.Image, error) {
	dc := gg.NewContextForImage(img)
	defer dc.Close()

	dc.SetLineWidth(opts.Width)
	half := float64(opts.Size / 2)
	h := img.Bounds().Dy()

	for _, v := range vertices {
		if !opts.Visible(v) {
			continue
		}
		px, py := pixel(v, h)
		// Stroke through pixel centers.
		cx, cy := float64(px)+0.5, float64(py)+0.5

		dc.SetColor(Color(v.Visibility()))
		dc.DrawLine(cx-half, cy, cx+half, cy)
		dc.DrawLine(cx, cy-half, cx, cy+half)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("drawing vertex %d: %w", v.ID, err)
		}
	}
	return dc.Image(), nil
}

// pixel rounds an annotation position to the image pixel it falls in.
func pixel(v annotation.Vertex, height int) (x, y int) {
	x = int(gomath.Round(float64(v.X)))
	y = height - int(gomath.Round(float64(v.Y)))
	return x, y
}
