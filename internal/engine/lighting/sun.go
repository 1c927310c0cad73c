// Package lighting provides the directional light used to shade renders.
package lighting

import (
	gomath "math"
	"math/rand/v2"

	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// SunDirection converts azimuth/elevation angles in degrees to a unit
// vector pointing towards the sun. Azimuth turns around the Z axis
// starting at +Y, elevation is measured from the horizon.
func SunDirection(azimuth, elevation float64) math.Vec3 {
	azRad := math.Radians(azimuth)
	elRad := math.Radians(elevation)

	return math.Vec3{
		X: gomath.Cos(elRad) * gomath.Sin(azRad),
		Y: gomath.Cos(elRad) * gomath.Cos(azRad),
		Z: gomath.Sin(elRad),
	}
}

// Light is a sun light with a constant ambient term.
type Light struct {
	Direction math.Vec3 // towards the light
	Color     math.Vec3 // linear RGB
	Energy    float64
	Ambient   float64 // environment contribution on lit surfaces

	// Angles the direction was built from, in degrees.
	Azimuth   float64
	Elevation float64
}

// Sun builds a white sun light.
func Sun(azimuth, elevation, energy, ambient float64) Light {
	return Light{
		Direction: SunDirection(azimuth, elevation),
		Color:     math.Vec3{X: 1, Y: 1, Z: 1},
		Energy:    energy,
		Ambient:   ambient,
		Azimuth:   azimuth,
		Elevation: elevation,
	}
}

// Params returns the light parameters recorded with each frame.
func (l Light) Params() map[string]float64 {
	return map[string]float64{
		"energy":    l.Energy,
		"azimuth":   l.Azimuth,
		"elevation": l.Elevation,
		"ambient":   l.Ambient,
	}
}

// SamplerConfig holds the closed ranges lights are drawn from.
type SamplerConfig struct {
	Energy    [2]float64
	Elevation [2]float64 // degrees
	Azimuth   [2]float64 // degrees
	Ambient   float64
}

// DefaultSamplerConfig returns the default light ranges.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Energy:    [2]float64{2, 6},
		Elevation: [2]float64{20, 80},
		Azimuth:   [2]float64{0, 360},
		Ambient:   0.15,
	}
}

// Sampler draws random sun lights.
type Sampler struct {
	cfg SamplerConfig
	rng *rand.Rand
}

// NewSampler creates a light sampler drawing from rng.
func NewSampler(cfg SamplerConfig, rng *rand.Rand) *Sampler {
	return &Sampler{cfg: cfg, rng: rng}
}

// Sample draws energy, elevation and azimuth uniformly.
func (s *Sampler) Sample() Light {
	energy := s.uniform(s.cfg.Energy)
	elevation := s.uniform(s.cfg.Elevation)
	azimuth := s.uniform(s.cfg.Azimuth)
	return Sun(azimuth, elevation, energy, s.cfg.Ambient)
}

func (s *Sampler) uniform(r [2]float64) float64 {
	lo, hi := r[0], r[1]
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}
