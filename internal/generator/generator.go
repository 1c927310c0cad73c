// Package generator renders randomized views of each configured model and
// writes an image and a vertex annotation per frame.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Monnte/car-dataset-generator/internal/annotation"
	"github.com/Monnte/car-dataset-generator/internal/config"
	"github.com/Monnte/car-dataset-generator/internal/engine/camera"
	"github.com/Monnte/car-dataset-generator/internal/engine/lighting"
	"github.com/Monnte/car-dataset-generator/internal/engine/model"
	"github.com/Monnte/car-dataset-generator/internal/engine/renderer"
	"github.com/Monnte/car-dataset-generator/internal/engine/scene"
	"github.com/Monnte/car-dataset-generator/internal/engine/texture"
	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/internal/visibility"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// ErrNoEnvironments is returned when every configured environment failed
// to load.
var ErrNoEnvironments = errors.New("no usable environments")

// PoseSampler chooses the camera pose of a frame.
type PoseSampler interface {
	Sample(target model.Bounds, w, h int) (camera.Pose, error)
}

// Report summarizes a generator run.
type Report struct {
	RunID   string
	Seed    uint64
	Frames  int   // frames written with image and annotation
	Skipped int   // models, environments and frames left out
	Errs    error // reasons for every skip, combined
}

func (r *Report) skip(log *zap.Logger, err error, msg string, fields ...zap.Field) {
	r.Skipped++
	r.Errs = multierr.Append(r.Errs, err)
	log.Warn(msg, append(fields, zap.Error(err))...)
}

// Option customizes a Generator.
type Option func(*Generator)

// WithPoseSampler replaces the random camera sampler.
func WithPoseSampler(ps PoseSampler) Option {
	return func(g *Generator) { g.poses = ps }
}

// Generator produces a dataset from a config. It is not safe for
// concurrent use.
type Generator struct {
	cfg      *config.Config
	format   string
	runID    string
	seed     uint64
	renderer *renderer.Renderer
	poses    PoseSampler
	lights   *lighting.Sampler
	seq      int
	log      *zap.Logger
}

// New validates cfg and prepares a run. Without a configured seed one is
// taken from the clock and logged.
func New(cfg *config.Config, opts ...Option) (*Generator, error) {
	log := logger.Named("generator")
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	format, err := renderer.NormalizeFormat(cfg.FileFormat)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(cfg.RenderDevice, "CPU") && cfg.RenderDevice != "" {
		log.Warn("render device not available, using CPU", zap.String("device", cfg.RenderDevice))
	}

	var seed uint64
	if cfg.Seed != nil {
		seed = *cfg.Seed
	} else {
		seed = uint64(time.Now().UnixNano())
		cfg.Seed = &seed
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	g := &Generator{
		cfg:    cfg,
		format: format,
		runID:  uuid.NewString(),
		seed:   seed,
		renderer: renderer.New(renderer.Config{
			Samples: cfg.RenderSamples,
			Albedo:  renderer.DefaultConfig().Albedo,
		}),
		poses:  camera.NewSampler(cameraConfig(cfg.Camera), rng),
		lights: lighting.NewSampler(lightConfig(cfg.Light), rng),
		log:    log,
	}
	for _, opt := range opts {
		opt(g)
	}

	log.Info("generator ready",
		zap.String("run_id", g.runID),
		zap.Uint64("seed", seed),
		zap.String("format", format),
		zap.Ints("resolution", cfg.RenderResolution[:]))
	return g, nil
}

// RunID returns the identifier written to every annotation of this run.
func (g *Generator) RunID() string {
	return g.runID
}

func cameraConfig(c config.CameraConfig) camera.SamplerConfig {
	cfg := camera.DefaultSamplerConfig()
	cfg.Inclination = c.Inclination
	cfg.Azimuth = c.Azimuth
	cfg.FOV = c.FOV
	cfg.Distance = c.Distance
	cfg.Height = c.Height
	cfg.FitToFrame = c.FitToFrame
	cfg.FOVPad = c.FOVPad
	return cfg
}

func lightConfig(c config.LightConfig) lighting.SamplerConfig {
	return lighting.SamplerConfig{
		Energy:    c.Energy,
		Elevation: c.Elevation,
		Azimuth:   c.Azimuth,
		Ambient:   c.Ambient,
	}
}

// environment is a loaded environment with its configured position.
type environment struct {
	index int
	env   *texture.Environment
}

// Run renders every model under every environment. Invalid models,
// environments and failed frames are skipped and listed in the report;
// only cancellation and setup failures end the run early.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: g.runID, Seed: g.seed}

	runConfig := filepath.Join(g.cfg.RenderDirectory, "run-"+g.runID+".yaml")
	if err := g.cfg.SaveTo(runConfig); err != nil {
		return report, fmt.Errorf("saving run config: %w", err)
	}

	envs := g.loadEnvironments(report)
	if len(envs) == 0 {
		return report, ErrNoEnvironments
	}

	for i, entry := range g.cfg.Models {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if entry.Path == "" {
			report.skip(g.log, fmt.Errorf("model %d: missing path", i), "skipping model entry", zap.Int("index", i))
			continue
		}
		if err := g.renderModel(ctx, entry, envs, report); err != nil {
			return report, err
		}
	}

	g.log.Info("generation done",
		zap.Int("frames", report.Frames),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (g *Generator) loadEnvironments(report *Report) []environment {
	if len(g.cfg.HDRIs) == 0 {
		return []environment{{index: 0, env: nil}}
	}

	var envs []environment
	for i, entry := range g.cfg.HDRIs {
		if entry.Path == "" {
			report.skip(g.log, fmt.Errorf("environment %d: missing path", i), "skipping environment entry", zap.Int("index", i))
			continue
		}
		env, err := texture.LoadEnvironment(entry.Path, entry.StrengthOrDefault())
		if err != nil {
			report.skip(g.log, fmt.Errorf("environment %s: %w", entry.Path, err), "skipping environment", zap.String("path", entry.Path))
			continue
		}
		envs = append(envs, environment{index: i, env: env})
	}
	return envs
}

func (g *Generator) renderModel(ctx context.Context, entry config.ModelEntry, envs []environment, report *Report) error {
	name := entry.ModelName()
	mesh, err := model.Load(entry.Path)
	if err != nil {
		report.skip(g.log, fmt.Errorf("model %s: %w", entry.Path, err), "skipping model", zap.String("path", entry.Path))
		return nil
	}

	target := model.NewObject(mesh, math.Identity())
	sc, err := scene.New(target, nil, g.renderer)
	if err != nil {
		report.skip(g.log, fmt.Errorf("model %s: %w", entry.Path, err), "skipping model", zap.String("path", entry.Path))
		return nil
	}
	flat := sc.Environment

	engine := &visibility.Engine{
		Rays:       sc,
		Tolerance:  g.cfg.Visibility.Tolerance,
		Workers:    g.cfg.Visibility.Workers,
		RayTimeout: g.cfg.Visibility.RayTimeout.Std(),
	}
	outDir := entry.OutputDir(g.cfg.RenderDirectory)

	g.log.Info("rendering model",
		zap.String("model", name),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", len(mesh.Faces)),
		zap.String("output", outDir))

	for _, e := range envs {
		sc.Environment = flat
		envName := ""
		if e.env != nil {
			sc.Environment = e.env
			envName = e.env.Name
		}

		for f := 0; f < g.cfg.RendersPerModel; f++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fr := frame{
				seq:      g.seq,
				model:    name,
				envName:  envName,
				envIndex: e.index,
				outDir:   outDir,
			}
			g.seq++

			if err := g.renderFrame(ctx, sc, engine, fr); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				report.skip(g.log, fmt.Errorf("frame %d of %s: %w", fr.seq, name, err), "skipping frame",
					zap.String("model", name), zap.Int("frame", fr.seq))
				continue
			}
			report.Frames++
		}
	}
	return nil
}

// frame identifies one output frame.
type frame struct {
	seq      int
	model    string
	envName  string
	envIndex int
	outDir   string
}

func (g *Generator) renderFrame(ctx context.Context, sc *scene.Scene, engine *visibility.Engine, fr frame) error {
	w, h := g.cfg.RenderResolution[0], g.cfg.RenderResolution[1]

	pose, err := g.poses.Sample(sc.Target.WorldBounds(), w, h)
	if err != nil {
		return fmt.Errorf("sampling camera: %w", err)
	}
	sc.Camera = pose
	sc.Light = g.lights.Sample()

	renderCtx := ctx
	if timeout := g.cfg.RenderTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	img, err := sc.Render(renderCtx, w, h)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	vertices, err := engine.Project(ctx, pose, w, h, sc.Target.WorldVertices())
	if err != nil {
		return fmt.Errorf("annotating: %w", err)
	}

	base := annotation.BaseName(fr.seq, fr.envIndex, g.cfg.MultiEnvironment())
	imagePath := filepath.Join(fr.outDir, base+renderer.FormatExt(g.format))
	if err := renderer.Save(imagePath, img, g.format, g.cfg.JPEGQuality); err != nil {
		return err
	}

	rec := &annotation.Record{
		Camera: annotation.CameraOf(pose),
		Meta: annotation.Meta{
			Model:            fr.model,
			Environment:      fr.envName,
			EnvironmentIndex: fr.envIndex,
			Frame:            fr.seq,
			Resolution:       g.cfg.RenderResolution,
			RunID:            g.runID,
			Seed:             g.seed,
			Light: annotation.LightMeta{
				Energy:    annotation.Decimal(sc.Light.Energy),
				Azimuth:   annotation.Decimal(sc.Light.Azimuth),
				Elevation: annotation.Decimal(sc.Light.Elevation),
				Ambient:   annotation.Decimal(sc.Light.Ambient),
			},
		},
		Vertices: vertices,
	}
	if _, err := annotation.Write(fr.outDir, base, rec); err != nil {
		return err
	}

	g.log.Debug("frame written",
		zap.String("image", imagePath),
		zap.Int("visible", rec.VisibleCount()),
		zap.Float64("fov_deg", math.Degrees(pose.FOV)))
	return nil
}
