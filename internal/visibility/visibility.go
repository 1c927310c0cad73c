// Package visibility projects mesh vertices into a camera image and decides
// which of them the camera can actually see.
//
// A vertex is visible when it projects inside the image, lies in front of
// the camera, and the first surface hit by a ray cast from the camera
// towards it lies within Tolerance of the vertex itself.
package visibility

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Monnte/car-dataset-generator/internal/annotation"
	"github.com/Monnte/car-dataset-generator/internal/engine/camera"
	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Errors returned by Project.
var (
	ErrEmptyMesh         = errors.New("no vertices to project")
	ErrInvalidResolution = errors.New("resolution must be positive")
	ErrNoRayQuerier      = errors.New("no ray query capability")
)

// DefaultTolerance is the maximum distance between a ray hit and the
// vertex for the vertex to count as visible, in world units.
const DefaultTolerance = 0.1

// RayQuerier finds the first surface point along a ray.
type RayQuerier interface {
	CastRay(ctx context.Context, origin, dir math.Vec3) (hit math.Vec3, ok bool, err error)
}

// Engine computes projected vertices for camera poses.
type Engine struct {
	Rays       RayQuerier
	Tolerance  float64       // world units, DefaultTolerance when zero
	Workers    int           // concurrent ray queries, NumCPU when zero
	RayTimeout time.Duration // per query, unlimited when zero
}

// Project returns one annotation vertex per input position, ordered by
// vertex id (the index in vertices). Pixel coordinates are u*w and v*h
// with the origin at the bottom-left image corner. Off-screen vertices
// keep their projected coordinates and are marked not visible.
func (e *Engine) Project(ctx context.Context, pose camera.Pose, w, h int, vertices []math.Vec3) ([]annotation.Vertex, error) {
	if err := pose.Validate(); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidResolution, w, h)
	}
	if len(vertices) == 0 {
		return nil, ErrEmptyMesh
	}
	if e.Rays == nil {
		return nil, ErrNoRayQuerier
	}

	tolerance := e.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pr := pose.Projector(w, h)
	out := make([]annotation.Vertex, len(vertices))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range vertices {
		g.Go(func() error {
			u, v, depth := pr.Project(p)
			out[i] = annotation.Vertex{
				ID: i,
				X:  annotation.Decimal(u * float64(w)),
				Y:  annotation.Decimal(v * float64(h)),
			}

			if !InFrustum(u, v, depth) {
				return nil
			}

			visible, err := e.occlusionTest(ctx, pose.Position, p, tolerance)
			if err != nil {
				return fmt.Errorf("vertex %d: %w", i, err)
			}
			out[i].Visible = annotation.ScoreOf(visible)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Named("visibility").Debug("projected vertices",
		zap.Int("vertices", len(vertices)),
		zap.Int("visible", countVisible(out)),
	)
	return out, nil
}

// InFrustum reports whether normalized view coordinates lie inside the
// image and in front of the camera.
func InFrustum(u, v, depth float64) bool {
	return u >= 0 && u <= 1 && v >= 0 && v <= 1 && depth > 0
}

// occlusionTest casts a ray from the camera towards the vertex.
func (e *Engine) occlusionTest(ctx context.Context, origin, vertex math.Vec3, tolerance float64) (bool, error) {
	if e.RayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.RayTimeout)
		defer cancel()
	}

	hit, ok, err := e.castRay(ctx, origin, vertex.Sub(origin))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return hit.Distance(vertex) < tolerance, nil
}

type rayResult struct {
	hit math.Vec3
	ok  bool
	err error
}

// castRay runs the query so that a stuck collaborator cannot outlive ctx.
func (e *Engine) castRay(ctx context.Context, origin, dir math.Vec3) (math.Vec3, bool, error) {
	done := make(chan rayResult, 1)
	go func() {
		hit, ok, err := e.Rays.CastRay(ctx, origin, dir)
		done <- rayResult{hit, ok, err}
	}()

	select {
	case r := <-done:
		return r.hit, r.ok, r.err
	case <-ctx.Done():
		return math.Vec3{}, false, fmt.Errorf("ray query: %w", ctx.Err())
	}
}

func countVisible(vs []annotation.Vertex) int {
	n := 0
	for _, v := range vs {
		if v.Visible > 0 {
			n++
		}
	}
	return n
}
