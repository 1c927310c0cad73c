package camera

import (
	"fmt"
	gomath "math"
	"math/rand/v2"

	"github.com/Monnte/car-dataset-generator/internal/engine/model"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// SamplerConfig holds the closed ranges poses are drawn from. Angles are
// in degrees.
type SamplerConfig struct {
	Inclination [2]float64 // elevation above the horizon
	Azimuth     [2]float64 // rotation around the target's vertical axis
	FOV         [2]float64
	Distance    [2]float64 // zero range: orbit by inclination
	Height      [2]float64 // used with Distance
	FitToFrame  bool
	FOVPad      [2]float64
	Margin      float64 // frame margin for fitting, fraction of the image
}

// DefaultSamplerConfig returns the default pose ranges.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Inclination: [2]float64{10, 60},
		Azimuth:     [2]float64{0, 360},
		FOV:         [2]float64{35, 60},
		FitToFrame:  true,
		FOVPad:      [2]float64{1, 3},
		Margin:      0.02,
	}
}

// Sampler draws random camera poses around a target.
// It is not safe for concurrent use.
type Sampler struct {
	cfg SamplerConfig
	rng *rand.Rand
}

// NewSampler creates a sampler drawing from rng.
func NewSampler(cfg SamplerConfig, rng *rand.Rand) *Sampler {
	return &Sampler{cfg: cfg, rng: rng}
}

func uniform(rng *rand.Rand, r [2]float64) float64 {
	lo, hi := r[0], r[1]
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// Sample returns a pose looking at the center of target for a w x h image.
func (s *Sampler) Sample(target model.Bounds, w, h int) (Pose, error) {
	center := target.Center()
	radius := gomath.Max(target.Radius(), 1e-3)

	azimuth := math.Radians(uniform(s.rng, s.cfg.Azimuth))
	fov := math.Radians(uniform(s.rng, s.cfg.FOV))

	var offset math.Vec3
	if s.cfg.Distance[0] > 0 || s.cfg.Distance[1] > 0 {
		// Behind the target at the given distance and height, then
		// swung around the vertical axis.
		d := uniform(s.rng, s.cfg.Distance)
		z := uniform(s.rng, s.cfg.Height)
		offset = math.RotateZ(azimuth).TransformDirection(math.Vec3{Y: -d, Z: z})
	} else {
		incl := math.Radians(uniform(s.rng, s.cfg.Inclination))
		dir := math.Vec3{Y: -gomath.Cos(incl), Z: gomath.Sin(incl)}
		offset = math.RotateZ(azimuth).TransformDirection(dir).Scale(3 * radius)
	}

	pose, err := LookAt(center.Add(offset), center, fov)
	if err != nil {
		return Pose{}, err
	}

	if s.cfg.FitToFrame {
		// An explicit distance range is a floor: fitting only backs off.
		var minDist float64
		if s.cfg.Distance[0] > 0 || s.cfg.Distance[1] > 0 {
			minDist = offset.Length()
		}
		pose = FitToFrame(pose, center, target.Corners(), w, h, s.cfg.Margin, minDist)
	}

	pose.FOV += math.Radians(uniform(s.rng, s.cfg.FOVPad))
	if pose.FOV >= gomath.Pi {
		pose.FOV = math.Radians(179)
	}

	if err := pose.Validate(); err != nil {
		return Pose{}, fmt.Errorf("sampled pose: %w", err)
	}
	return pose, nil
}

// FitToFrame slides the camera along its view direction so that every
// point projects inside the frame margin, as close to center as possible
// but never closer than minDist. A pose that already fits at minDist keeps
// that distance.
func FitToFrame(pose Pose, center math.Vec3, points [8]math.Vec3, w, h int, margin, minDist float64) Pose {
	_, _, forward := pose.Basis()

	fits := func(dist float64) bool {
		p := pose
		p.Position = center.Sub(forward.Scale(dist))
		pr := p.Projector(w, h)
		for _, pt := range points {
			if !pr.InFrame(pt, margin) {
				return false
			}
		}
		return true
	}

	var radius float64
	for _, pt := range points {
		radius = gomath.Max(radius, pt.Distance(center))
	}
	if radius == 0 {
		return pose
	}

	if minDist > 0 && fits(minDist) {
		pose.Position = center.Sub(forward.Scale(minDist))
		return pose
	}

	lo, hi := minDist, gomath.Max(radius, minDist)
	for i := 0; i < 64 && !fits(hi); i++ {
		lo = hi
		hi *= 2
	}
	if !fits(hi) {
		return pose
	}

	for i := 0; i < 50; i++ {
		mid := (lo + hi) / 2
		if fits(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}

	pose.Position = center.Sub(forward.Scale(hi))
	return pose
}
