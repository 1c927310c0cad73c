// Package camera provides the pinhole camera pose used for rendering and
// vertex projection, and a sampler of randomized poses around a target.
package camera

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Monnte/car-dataset-generator/internal/engine/picking"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// ErrDegenerateCamera is returned for poses that cannot project points.
var ErrDegenerateCamera = errors.New("degenerate camera")

// worldUp is the world's vertical axis.
var worldUp = math.Vec3{X: 0, Y: 0, Z: 1}

// Pose is a camera position, orientation and field of view. The camera
// looks down its local -Z axis with local +Y up; Rotation maps local to
// world axes.
type Pose struct {
	Position math.Vec3
	Rotation math.Euler
	FOV      float64 // radians, spans the larger image dimension
}

// LookAt returns a pose at pos facing target with the world Z axis up.
func LookAt(pos, target math.Vec3, fov float64) (Pose, error) {
	dir := target.Sub(pos)
	if dir.Length() < 1e-9 {
		return Pose{}, fmt.Errorf("%w: camera and target coincide", ErrDegenerateCamera)
	}
	f := dir.Normalize()

	r := f.Cross(worldUp)
	if r.Length() < 1e-9 {
		// Looking straight up or down: keep +X to the right.
		r = math.Vec3{X: 1}
	}
	r = r.Normalize()
	u := r.Cross(f)

	// Local X, Y, Z map to right, up, -forward.
	rot := math.EulerFromBasis(r, u, f.Scale(-1))
	return Pose{Position: pos, Rotation: rot, FOV: fov}, nil
}

// Basis returns the world-space right, up and forward unit vectors.
func (p Pose) Basis() (right, up, forward math.Vec3) {
	m := p.Rotation.ToMat4()
	return m.Column(0), m.Column(1), m.Column(2).Scale(-1)
}

// ViewMatrix returns the world-to-camera transform.
func (p Pose) ViewMatrix() math.Mat4 {
	_, up, forward := p.Basis()
	return math.LookAt(p.Position, p.Position.Add(forward), up)
}

// Validate checks that the pose can project points.
func (p Pose) Validate() error {
	if !p.Position.IsFinite() {
		return fmt.Errorf("%w: position %v", ErrDegenerateCamera, p.Position)
	}
	r := math.Vec3{X: p.Rotation.X, Y: p.Rotation.Y, Z: p.Rotation.Z}
	if !r.IsFinite() {
		return fmt.Errorf("%w: rotation %v", ErrDegenerateCamera, p.Rotation)
	}
	if gomath.IsNaN(p.FOV) || p.FOV <= 0 || p.FOV >= gomath.Pi {
		return fmt.Errorf("%w: field of view %v outside (0, pi)", ErrDegenerateCamera, p.FOV)
	}
	return nil
}

// Projector maps world points to normalized view coordinates for one
// pose and resolution.
type Projector struct {
	view       math.Mat4
	tanX, tanY float64
}

// Projector prepares projection for a w x h image.
func (p Pose) Projector(w, h int) Projector {
	t := gomath.Tan(p.FOV / 2)
	pr := Projector{view: p.ViewMatrix(), tanX: t, tanY: t}
	if w >= h {
		pr.tanY = t * float64(h) / float64(w)
	} else {
		pr.tanX = t * float64(w) / float64(h)
	}
	return pr
}

// Project returns (u, v, depth): u and v span [0, 1] across the image with
// v measured from the bottom edge, depth is the distance along the view
// direction. A point in the camera plane projects to (0.5, 0.5, 0).
func (pr Projector) Project(pt math.Vec3) (u, v, depth float64) {
	c := pr.view.TransformPoint(pt)
	depth = -c.Z
	if depth == 0 {
		return 0.5, 0.5, 0
	}
	u = 0.5 + c.X/(2*depth*pr.tanX)
	v = 0.5 + c.Y/(2*depth*pr.tanY)
	return u, v, depth
}

// ViewSpace projects a single point. Use Projector for many points.
func (p Pose) ViewSpace(pt math.Vec3, w, h int) (u, v, depth float64) {
	return p.Projector(w, h).Project(pt)
}

// PixelRay returns the world ray through image position (px, py), where
// (0, 0) is the top-left image corner and (w, h) the bottom-right.
func (p Pose) PixelRay(px, py float64, w, h int) picking.Ray {
	right, up, forward := p.Basis()
	pr := p.Projector(w, h)

	x := (px/float64(w) - 0.5) * 2 * pr.tanX
	y := (0.5 - py/float64(h)) * 2 * pr.tanY
	dir := forward.Add(right.Scale(x)).Add(up.Scale(y)).Normalize()
	return picking.Ray{Origin: p.Position, Direction: dir}
}

// InFrame reports whether pt projects inside the image with the given
// margin (fraction of the image on each side) and in front of the camera.
func (pr Projector) InFrame(pt math.Vec3, margin float64) bool {
	u, v, depth := pr.Project(pt)
	return depth > 0 &&
		u >= margin && u <= 1-margin &&
		v >= margin && v <= 1-margin
}
