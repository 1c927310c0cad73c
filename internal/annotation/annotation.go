// Package annotation defines the per-frame annotation record and its JSON
// file format.
package annotation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Monnte/car-dataset-generator/internal/engine/camera"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Ext is the annotation file extension.
const Ext = ".json"

// Record is the annotation of one rendered frame.
type Record struct {
	Camera   Camera   `json:"camera"`
	Meta     Meta     `json:"meta"`
	Vertices []Vertex `json:"vertices"`
}

// XYZ is a three-component value written as decimal strings.
type XYZ struct {
	X Decimal `json:"x"`
	Y Decimal `json:"y"`
	Z Decimal `json:"z"`
}

// Camera is a snapshot of the pose a frame was rendered with.
type Camera struct {
	Position XYZ     `json:"position"`
	Rotation XYZ     `json:"rotation"` // XYZ Euler angles, radians
	FOV      Decimal `json:"fov"`      // radians
}

// CameraOf snapshots a pose.
func CameraOf(p camera.Pose) Camera {
	return Camera{
		Position: XYZ{X: Decimal(p.Position.X), Y: Decimal(p.Position.Y), Z: Decimal(p.Position.Z)},
		Rotation: XYZ{X: Decimal(p.Rotation.X), Y: Decimal(p.Rotation.Y), Z: Decimal(p.Rotation.Z)},
		FOV:      Decimal(p.FOV),
	}
}

// Pose converts the snapshot back to a camera pose (rounded to 3 places).
func (c Camera) Pose() camera.Pose {
	return camera.Pose{
		Position: math.Vec3{X: float64(c.Position.X), Y: float64(c.Position.Y), Z: float64(c.Position.Z)},
		Rotation: math.Euler{X: float64(c.Rotation.X), Y: float64(c.Rotation.Y), Z: float64(c.Rotation.Z)},
		FOV:      float64(c.FOV),
	}
}

// Meta describes where a frame came from.
type Meta struct {
	Model            string         `json:"model"`
	Environment      string         `json:"environment"`
	EnvironmentIndex int            `json:"environment_index"`
	Frame            int            `json:"frame"`
	Resolution       [2]int         `json:"resolution"`
	RunID            string         `json:"run_id,omitempty"`
	Seed             uint64         `json:"seed"`
	Light            LightMeta      `json:"light"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// LightMeta records the sun parameters of a frame.
type LightMeta struct {
	Energy    Decimal `json:"energy"`
	Azimuth   Decimal `json:"azimuth"`
	Elevation Decimal `json:"elevation"`
	Ambient   Decimal `json:"ambient"`
}

// Vertex is one projected mesh vertex. X and Y are pixel coordinates with
// the origin at the bottom-left image corner.
type Vertex struct {
	ID      int     `json:"v_id"`
	X       Decimal `json:"x"`
	Y       Decimal `json:"y"`
	Visible Score   `json:"v"`
}

// Visibility returns the visibility score used for threshold checks.
func (v Vertex) Visibility() float64 {
	return float64(v.Visible)
}

// VisibleCount returns the number of vertices with a non-zero score.
func (r *Record) VisibleCount() int {
	n := 0
	for _, v := range r.Vertices {
		if v.Visible > 0 {
			n++
		}
	}
	return n
}

// BaseName returns the file name shared by a frame's image and annotation.
// Multi-environment runs append the environment index.
func BaseName(seq, envIndex int, multiEnv bool) string {
	if multiEnv {
		return fmt.Sprintf("%06d_%02d", seq, envIndex)
	}
	return fmt.Sprintf("%06d", seq)
}

// PathFor returns the annotation path belonging to an image path.
func PathFor(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + Ext
}

// Write stores rec as dir/base.json and returns the path. The file is
// written to a temporary name first so readers never see partial records.
func Write(dir, base string, rec *Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding annotation: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating annotation dir: %w", err)
	}

	path := filepath.Join(dir, base+Ext)
	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating annotation file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing annotation: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing annotation: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing annotation: %w", err)
	}
	return path, nil
}

// Read loads an annotation file.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading annotation: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing annotation %s: %w", path, err)
	}
	return &rec, nil
}
