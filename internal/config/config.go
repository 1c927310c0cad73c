// Package config handles generator configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all generator settings.
type Config struct {
	RenderResolution [2]int       `yaml:"render_resolution"`
	RendersPerModel  int          `yaml:"renders_per_model"`
	Models           []ModelEntry `yaml:"models"`
	HDRIs            []HDRIEntry  `yaml:"hdris"`
	RenderDevice     string       `yaml:"render_device"`
	RenderSamples    int          `yaml:"render_samples"`
	FileFormat       string       `yaml:"file_format"`
	JPEGQuality      int          `yaml:"jpeg_quality"`
	RenderDirectory  string       `yaml:"render_directory"`
	RenderTimeout    Duration     `yaml:"render_timeout"`

	// Seed is nil when the config leaves it out; the generator then
	// seeds from the clock.
	Seed *uint64 `yaml:"seed,omitempty"`

	Camera     CameraConfig     `yaml:"camera"`
	Light      LightConfig      `yaml:"light"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ModelEntry names one mesh to render.
type ModelEntry struct {
	Path     string `yaml:"path"`
	SavePath string `yaml:"save_path"` // relative to render_directory
	Name     string `yaml:"name,omitempty"`
}

// HDRIEntry is one environment map. It decodes from either a bare path
// string or a {path, strength} object.
type HDRIEntry struct {
	Path     string  `yaml:"path"`
	Strength float64 `yaml:"strength,omitempty"`
}

// CameraConfig holds camera sampling ranges. Angles are in degrees.
type CameraConfig struct {
	Inclination [2]float64 `yaml:"inclination"`
	Azimuth     [2]float64 `yaml:"azimuth"`
	FOV         [2]float64 `yaml:"fov"`
	Distance    [2]float64 `yaml:"distance"`
	Height      [2]float64 `yaml:"height"`
	FitToFrame  bool       `yaml:"fit_to_frame"`
	FOVPad      [2]float64 `yaml:"fov_pad"`
}

// LightConfig holds sun sampling ranges.
type LightConfig struct {
	Energy    [2]float64 `yaml:"energy"`
	Elevation [2]float64 `yaml:"elevation"`
	Azimuth   [2]float64 `yaml:"azimuth"`
	Ambient   float64    `yaml:"ambient"`
}

// VisibilityConfig holds occlusion test settings.
type VisibilityConfig struct {
	Tolerance  float64  `yaml:"tolerance"`
	Workers    int      `yaml:"workers"` // 0 uses NumCPU
	RayTimeout Duration `yaml:"ray_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values. Models are
// left empty; a config file must provide them.
func Default() *Config {
	return &Config{
		RenderResolution: [2]int{1920, 1080},
		RendersPerModel:  10,
		RenderDevice:     "CPU",
		RenderSamples:    4,
		FileFormat:       "PNG",
		JPEGQuality:      95,
		RenderDirectory:  "./renders",
		RenderTimeout:    Duration(5 * time.Minute),
		Camera: CameraConfig{
			Inclination: [2]float64{10, 60},
			Azimuth:     [2]float64{0, 360},
			FOV:         [2]float64{35, 60},
			FitToFrame:  true,
			FOVPad:      [2]float64{1, 3},
		},
		Light: LightConfig{
			Energy:    [2]float64{2, 6},
			Elevation: [2]float64{20, 80},
			Azimuth:   [2]float64{0, 360},
			Ambient:   0.15,
		},
		Visibility: VisibilityConfig{
			Tolerance:  0.1,
			RayTimeout: Duration(2 * time.Second),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validation errors.
var (
	ErrNoModels          = errors.New("config lists no models")
	ErrInvalidResolution = errors.New("render_resolution must be positive")
	ErrInvalidRenders    = errors.New("renders_per_model must be positive")
	ErrInvalidRange      = errors.New("range minimum exceeds maximum")
)

// Validate reports settings no run can proceed with. Individual model and
// environment entries are checked by the generator, which skips bad ones.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return ErrNoModels
	}
	if c.RenderResolution[0] <= 0 || c.RenderResolution[1] <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidResolution, c.RenderResolution)
	}
	if c.RendersPerModel <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRenders, c.RendersPerModel)
	}

	ranges := []struct {
		key string
		r   [2]float64
	}{
		{"camera.inclination", c.Camera.Inclination},
		{"camera.azimuth", c.Camera.Azimuth},
		{"camera.fov", c.Camera.FOV},
		{"camera.distance", c.Camera.Distance},
		{"camera.height", c.Camera.Height},
		{"camera.fov_pad", c.Camera.FOVPad},
		{"light.energy", c.Light.Energy},
		{"light.elevation", c.Light.Elevation},
		{"light.azimuth", c.Light.Azimuth},
	}
	for _, rg := range ranges {
		if rg.r[0] > rg.r[1] {
			return fmt.Errorf("%w: %s %v", ErrInvalidRange, rg.key, rg.r)
		}
	}
	return nil
}

// MultiEnvironment reports whether frame names carry an environment index.
func (c *Config) MultiEnvironment() bool {
	return len(c.HDRIs) > 1
}

// ModelName returns the identifier written to annotations: the explicit
// name, else the base of save_path, else the base of path without its
// extension.
func (m ModelEntry) ModelName() string {
	if m.Name != "" {
		return m.Name
	}
	if m.SavePath != "" {
		return filepath.Base(filepath.Clean(m.SavePath))
	}
	base := filepath.Base(m.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputDir returns where frames of this model are written.
func (m ModelEntry) OutputDir(renderDir string) string {
	if filepath.IsAbs(m.SavePath) {
		return m.SavePath
	}
	return filepath.Join(renderDir, m.SavePath)
}

// UnmarshalYAML accepts a bare path or a mapping.
func (h *HDRIEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		h.Path = value.Value
		return nil
	}
	type plain HDRIEntry
	return value.Decode((*plain)(h))
}

// StrengthOrDefault returns the configured strength, 1 when unset.
func (h HDRIEntry) StrengthOrDefault() float64 {
	if h.Strength <= 0 {
		return 1
	}
	return h.Strength
}
