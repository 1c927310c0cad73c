// Package renderer ray casts frames of the scene into images on the CPU.
package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	gomath "math"
	"math/rand/v2"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Monnte/car-dataset-generator/internal/engine/camera"
	"github.com/Monnte/car-dataset-generator/internal/engine/lighting"
	"github.com/Monnte/car-dataset-generator/internal/engine/picking"
	"github.com/Monnte/car-dataset-generator/internal/engine/texture"
	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Samples int       // rays per pixel, jittered when above 1
	Workers int       // rows rendered concurrently, 0 means NumCPU
	Albedo  math.Vec3 // surface color of the target
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		Samples: 4,
		Albedo:  math.Vec3{X: 0.55, Y: 0.56, Z: 0.6},
	}
}

// Frame is everything needed to render one image.
type Frame struct {
	Camera      camera.Pose
	Geometry    *picking.BVH
	Light       lighting.Light
	Environment *texture.Environment
}

// Renderer shades frames with one sun light and environment lighting.
type Renderer struct {
	config Config
}

// New creates a new renderer.
func New(cfg Config) *Renderer {
	if cfg.Samples < 1 {
		cfg.Samples = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	logger.Named("renderer").Debug("renderer initialized",
		zap.Int("samples", cfg.Samples),
		zap.Int("workers", cfg.Workers),
	)
	return &Renderer{config: cfg}
}

// Render produces a w x h image of the frame. Rows are rendered in
// parallel; the context is checked before each row.
func (r *Renderer) Render(ctx context.Context, f Frame, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid resolution %dx%d", w, h)
	}
	if err := f.Camera.Validate(); err != nil {
		return nil, err
	}
	if f.Geometry == nil || f.Environment == nil {
		return nil, fmt.Errorf("frame is missing geometry or environment")
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for y := 0; y < h; y++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.renderRow(img, f, y, w, h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}
	return img, nil
}

func (r *Renderer) renderRow(img *image.RGBA, f Frame, y, w, h int) {
	// Seeded by row so renders are reproducible regardless of scheduling.
	rng := rand.New(rand.NewPCG(uint64(y), uint64(w)<<32|uint64(h)))
	n := r.config.Samples

	for x := 0; x < w; x++ {
		var sum math.Vec3
		for s := 0; s < n; s++ {
			jx, jy := 0.5, 0.5
			if n > 1 {
				jx, jy = rng.Float64(), rng.Float64()
			}
			ray := f.Camera.PixelRay(float64(x)+jx, float64(y)+jy, w, h)
			sum = sum.Add(r.shade(f, ray))
		}
		c := sum.Scale(1 / float64(n))
		img.SetRGBA(x, y, color.RGBA{R: toneMap(c.X), G: toneMap(c.Y), B: toneMap(c.Z), A: 255})
	}
}

// shade returns the linear radiance arriving along ray.
func (r *Renderer) shade(f Frame, ray picking.Ray) math.Vec3 {
	hit, ok := f.Geometry.FirstHit(ray, gomath.Inf(1))
	if !ok {
		return f.Environment.Sample(ray.Direction)
	}

	ambient := f.Environment.Sample(hit.Normal).Scale(f.Light.Ambient)

	var direct math.Vec3
	if cos := hit.Normal.Dot(f.Light.Direction); cos > 0 {
		// Offset along the normal so the shadow ray leaves the surface.
		origin := hit.Point.Add(hit.Normal.Scale(1e-6 * gomath.Max(1, hit.T)))
		shadow := picking.Ray{Origin: origin, Direction: f.Light.Direction}
		if !f.Geometry.Occluded(shadow, gomath.Inf(1)) {
			direct = f.Light.Color.Scale(f.Light.Energy * cos / gomath.Pi)
		}
	}

	return direct.Add(ambient).Mul(r.config.Albedo)
}

// toneMap applies a Reinhard curve and gamma 2.2.
func toneMap(v float64) uint8 {
	if v <= 0 || gomath.IsNaN(v) {
		return 0
	}
	m := v / (1 + v)
	return uint8(gomath.Round(gomath.Pow(m, 1/2.2) * 255))
}
