// Package scene owns the objects of one rendering setup: the target mesh,
// the camera, the sun light and the environment. Objects are held by
// typed fields, never looked up by name.
package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	gomath "math"

	"github.com/Monnte/car-dataset-generator/internal/engine/camera"
	"github.com/Monnte/car-dataset-generator/internal/engine/lighting"
	"github.com/Monnte/car-dataset-generator/internal/engine/model"
	"github.com/Monnte/car-dataset-generator/internal/engine/picking"
	"github.com/Monnte/car-dataset-generator/internal/engine/renderer"
	"github.com/Monnte/car-dataset-generator/internal/engine/texture"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// ErrNoTarget is returned when a scene is built without a mesh.
var ErrNoTarget = errors.New("scene has no target object")

// Scene manages the target object and per-frame camera and light.
// Camera and Light are replaced between frames and must not change while
// a frame is rendered or annotated.
type Scene struct {
	Camera      camera.Pose
	Light       lighting.Light
	Target      *model.Object
	Environment *texture.Environment

	bvh      *picking.BVH
	renderer *renderer.Renderer
}

// New creates a scene around target. The acceleration structure is built
// once here; the target must not move afterwards. A nil environment is
// replaced by a flat gray world.
func New(target *model.Object, env *texture.Environment, r *renderer.Renderer) (*Scene, error) {
	if target == nil || target.TriangleCount() == 0 {
		return nil, ErrNoTarget
	}
	if env == nil {
		env = texture.Flat(math.Vec3{X: 0.05, Y: 0.05, Z: 0.05})
	}
	if r == nil {
		r = renderer.New(renderer.DefaultConfig())
	}
	return &Scene{
		Target:      target,
		Environment: env,
		bvh:         picking.NewBVH(target),
		renderer:    r,
	}, nil
}

// CastRay returns the first surface point along the ray from origin in
// direction dir.
func (s *Scene) CastRay(ctx context.Context, origin, dir math.Vec3) (math.Vec3, bool, error) {
	if err := ctx.Err(); err != nil {
		return math.Vec3{}, false, err
	}
	hit, ok := s.bvh.FirstHit(picking.NewRay(origin, origin.Add(dir)), gomath.Inf(1))
	if !ok {
		return math.Vec3{}, false, nil
	}
	return hit.Point, true, nil
}

// Render draws the current frame at w x h.
func (s *Scene) Render(ctx context.Context, w, h int) (*image.RGBA, error) {
	img, err := s.renderer.Render(ctx, renderer.Frame{
		Camera:      s.Camera,
		Geometry:    s.bvh,
		Light:       s.Light,
		Environment: s.Environment,
	}, w, h)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return img, nil
}
