package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.RenderResolution != [2]int{1920, 1080} {
		t.Errorf("expected resolution 1920x1080, got %v", cfg.RenderResolution)
	}
	if cfg.RendersPerModel != 10 {
		t.Errorf("expected 10 renders per model, got %d", cfg.RendersPerModel)
	}
	if cfg.FileFormat != "PNG" {
		t.Errorf("expected file format PNG, got %s", cfg.FileFormat)
	}
	if cfg.RenderDirectory != "./renders" {
		t.Errorf("expected render directory ./renders, got %s", cfg.RenderDirectory)
	}
	if cfg.Seed != nil {
		t.Errorf("expected no seed by default, got %d", *cfg.Seed)
	}

	if cfg.Camera.FOV != [2]float64{35, 60} {
		t.Errorf("expected fov range 35-60, got %v", cfg.Camera.FOV)
	}
	if !cfg.Camera.FitToFrame {
		t.Error("expected fit_to_frame to be true by default")
	}

	if cfg.Visibility.Tolerance != 0.1 {
		t.Errorf("expected visibility tolerance 0.1, got %f", cfg.Visibility.Tolerance)
	}
	if cfg.Visibility.RayTimeout.Std() != 2*time.Second {
		t.Errorf("expected ray timeout 2s, got %v", cfg.Visibility.RayTimeout)
	}
	if cfg.RenderTimeout.Std() != 5*time.Minute {
		t.Errorf("expected render timeout 5m, got %v", cfg.RenderTimeout)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	// Defaults alone are not runnable: models are required.
	if err := cfg.Validate(); !errors.Is(err, ErrNoModels) {
		t.Errorf("expected ErrNoModels, got %v", err)
	}
}

func TestLoadFromFileJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	jsonContent := `{
  "render_resolution": [640, 480],
  "renders_per_model": 3,
  "models": [
    {"path": "models/bmw.stl", "save_path": "bmw"},
    {"save_path": "broken"}
  ],
  "hdris": ["env/studio.hdr", {"path": "env/sky.png", "strength": 2.5}],
  "render_device": "GPU",
  "render_samples": 8,
  "file_format": "JPEG",
  "render_directory": "out",
  "seed": 42,
  "camera": {"fov": [40, 50], "fit_to_frame": false},
  "visibility": {"tolerance": 0.05, "ray_timeout": "500ms"},
  "render_timeout": 30
}`

	if err := os.WriteFile(configPath, []byte(jsonContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.RenderResolution != [2]int{640, 480} {
		t.Errorf("expected resolution 640x480, got %v", cfg.RenderResolution)
	}
	if cfg.RendersPerModel != 3 {
		t.Errorf("expected 3 renders per model, got %d", cfg.RendersPerModel)
	}
	if len(cfg.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(cfg.Models))
	}
	if cfg.Models[0].Path != "models/bmw.stl" || cfg.Models[0].SavePath != "bmw" {
		t.Errorf("unexpected first model %+v", cfg.Models[0])
	}
	if cfg.Models[1].Path != "" {
		t.Errorf("expected second model without path, got %q", cfg.Models[1].Path)
	}

	if len(cfg.HDRIs) != 2 {
		t.Fatalf("expected 2 hdris, got %d", len(cfg.HDRIs))
	}
	if cfg.HDRIs[0].Path != "env/studio.hdr" || cfg.HDRIs[0].StrengthOrDefault() != 1 {
		t.Errorf("unexpected bare hdri %+v", cfg.HDRIs[0])
	}
	if cfg.HDRIs[1].Path != "env/sky.png" || cfg.HDRIs[1].Strength != 2.5 {
		t.Errorf("unexpected hdri object %+v", cfg.HDRIs[1])
	}
	if !cfg.MultiEnvironment() {
		t.Error("expected two hdris to be multi-environment")
	}

	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Errorf("expected seed 42, got %v", cfg.Seed)
	}
	if cfg.Camera.FOV != [2]float64{40, 50} {
		t.Errorf("expected fov 40-50, got %v", cfg.Camera.FOV)
	}
	if cfg.Camera.FitToFrame {
		t.Error("expected fit_to_frame to be false")
	}
	// Keys missing from the file keep their defaults.
	if cfg.Camera.Inclination != [2]float64{10, 60} {
		t.Errorf("expected default inclination, got %v", cfg.Camera.Inclination)
	}
	if cfg.JPEGQuality != 95 {
		t.Errorf("expected default jpeg quality 95, got %d", cfg.JPEGQuality)
	}

	if cfg.Visibility.RayTimeout.Std() != 500*time.Millisecond {
		t.Errorf("expected ray timeout 500ms, got %v", cfg.Visibility.RayTimeout)
	}
	if cfg.RenderTimeout.Std() != 30*time.Second {
		t.Errorf("expected render timeout 30s, got %v", cfg.RenderTimeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
models:
  - path: car.obj
hdris:
  - path: sky.hdr
light:
  energy: [1, 2]
logging:
  level: "debug"
  log_file: "generator.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Light.Energy != [2]float64{1, 2} {
		t.Errorf("expected energy 1-2, got %v", cfg.Light.Energy)
	}
	if cfg.Light.Ambient != 0.15 {
		t.Errorf("expected default ambient 0.15, got %f", cfg.Light.Ambient)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "generator.log" {
		t.Errorf("expected log file 'generator.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.MultiEnvironment() {
		t.Error("expected a single hdri not to be multi-environment")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")

	invalidJSON := `{"render_resolution": "wide", "models": [`

	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid config, got nil")
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/config.json")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestInvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"render_timeout": "soon"}`), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadFile(configPath); err == nil {
		t.Error("expected error for invalid duration, got nil")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Models = []ModelEntry{{Path: "car.stl"}}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"no models", func(c *Config) { c.Models = nil }, ErrNoModels},
		{"zero width", func(c *Config) { c.RenderResolution = [2]int{0, 480} }, ErrInvalidResolution},
		{"no renders", func(c *Config) { c.RendersPerModel = 0 }, ErrInvalidRenders},
		{"fov range", func(c *Config) { c.Camera.FOV = [2]float64{60, 30} }, ErrInvalidRange},
		{"energy range", func(c *Config) { c.Light.Energy = [2]float64{5, 1} }, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestModelName(t *testing.T) {
	tests := []struct {
		entry ModelEntry
		want  string
		dir   string
	}{
		{ModelEntry{Path: "m/bmw.stl", SavePath: "cars/bmw_x5", Name: "x5"}, "x5", "renders/cars/bmw_x5"},
		{ModelEntry{Path: "m/bmw.stl", SavePath: "cars/bmw_x5/"}, "bmw_x5", "renders/cars/bmw_x5"},
		{ModelEntry{Path: "m/audi.glb"}, "audi", "renders"},
	}

	for _, tt := range tests {
		if got := tt.entry.ModelName(); got != tt.want {
			t.Errorf("ModelName(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
		if got := tt.entry.OutputDir("renders"); got != tt.dir {
			t.Errorf("OutputDir(%+v) = %q, want %q", tt.entry, got, tt.dir)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "seed flag",
			setup: func() {
				*flagSeed = "7"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Seed == nil || *cfg.Seed != 7 {
					t.Errorf("expected seed 7, got %v", cfg.Seed)
				}
			},
			teardown: func() {
				*flagSeed = ""
			},
		},
		{
			name: "renders and output flags",
			setup: func() {
				*flagRenders = 25
				*flagOutput = "/tmp/out"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.RendersPerModel != 25 {
					t.Errorf("expected 25 renders, got %d", cfg.RendersPerModel)
				}
				if cfg.RenderDirectory != "/tmp/out" {
					t.Errorf("expected output /tmp/out, got %s", cfg.RenderDirectory)
				}
			},
			teardown: func() {
				*flagRenders = 0
				*flagOutput = ""
			},
		},
		{
			name: "log file flag",
			setup: func() {
				*flagLogFile = "run.log"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "run.log" {
					t.Errorf("expected log file run.log, got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() {
				*flagLogFile = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			if err := applyFlags(cfg); err != nil {
				t.Fatalf("applyFlags: %v", err)
			}
			tt.verify(t, cfg)
		})
	}
}

func TestApplyFlagsInvalidSeed(t *testing.T) {
	*flagSeed = "-1"
	defer func() { *flagSeed = "" }()

	if err := applyFlags(Default()); err == nil {
		t.Error("expected error for negative seed, got nil")
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	jsonContent := `{"models": [{"path": "car.stl"}], "renders_per_model": 4, "render_directory": "file-out"}`

	if err := os.WriteFile(configPath, []byte(jsonContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagRenders = 9
	defer func() {
		*flagConfig = DefaultPath
		*flagRenders = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Renders should be from flag (9), not file (4)
	if cfg.RendersPerModel != 9 {
		t.Errorf("expected 9 renders from flag, got %d", cfg.RendersPerModel)
	}

	// Directory should be from file since no flag override
	if cfg.RenderDirectory != "file-out" {
		t.Errorf("expected render directory from file, got %s", cfg.RenderDirectory)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	*flagConfig = filepath.Join(t.TempDir(), "missing.json")
	defer func() { *flagConfig = DefaultPath }()

	if _, err := Load(); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestSaveTo(t *testing.T) {
	cfg := Default()
	cfg.Models = []ModelEntry{{Path: "car.stl", SavePath: "car"}}
	cfg.HDRIs = []HDRIEntry{{Path: "sky.hdr", Strength: 1.5}}
	seed := uint64(99)
	cfg.Seed = &seed

	path := filepath.Join(t.TempDir(), "nested", "run.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Seed == nil || *loaded.Seed != 99 {
		t.Errorf("expected seed 99 after reload, got %v", loaded.Seed)
	}
	if len(loaded.HDRIs) != 1 || loaded.HDRIs[0].Strength != 1.5 {
		t.Errorf("unexpected hdris after reload: %+v", loaded.HDRIs)
	}
	if loaded.RenderTimeout != cfg.RenderTimeout {
		t.Errorf("expected render timeout %v, got %v", cfg.RenderTimeout, loaded.RenderTimeout)
	}
}
