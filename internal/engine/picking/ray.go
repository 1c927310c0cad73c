// Package picking provides ray casting against triangle geometry.
package picking

import (
	gomath "math"

	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// NewRay returns a ray from origin towards target.
func NewRay(origin, target math.Vec3) Ray {
	return Ray{Origin: origin, Direction: target.Sub(origin).Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// NewAABB creates an AABB from two corners in any order.
func NewAABB(a, b math.Vec3) AABB {
	return AABB{Min: a.Min(b), Max: a.Max(b)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float64, hit bool) {
	tmin, tmax, ok := r.slabs(box)
	if !ok {
		return 0, false
	}
	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// slabs clips the ray against each axis pair of planes.
func (r Ray) slabs(box AABB) (tmin, tmax float64, ok bool) {
	tmin = gomath.Inf(-1)
	tmax = gomath.Inf(1)

	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Axis(axis)
		d := r.Direction.Axis(axis)
		lo := box.Min.Axis(axis)
		hi := box.Max.Axis(axis)

		if d == 0 {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, 0, false
	}
	return tmin, tmax, true
}

// Tolerances for triangle tests. Barycentric slack makes rays through
// shared edges and corners register a hit on at least one triangle.
const (
	parallelEpsilon    = 1e-12
	barycentricEpsilon = 1e-9
	minHitDistance     = 1e-9
)

// IntersectTriangle tests the ray against triangle (a, b, c) using the
// Möller-Trumbore algorithm. Both faces are hit.
func (r Ray) IntersectTriangle(a, b, c math.Vec3) (t float64, hit bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if gomath.Abs(det) < parallelEpsilon {
		return 0, false // Ray parallel to triangle
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < -barycentricEpsilon || u > 1+barycentricEpsilon {
		return 0, false
	}

	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < -barycentricEpsilon || u+v > 1+barycentricEpsilon {
		return 0, false
	}

	t = e2.Dot(q) * inv
	if t < minHitDistance {
		return 0, false // Intersection behind ray origin
	}
	return t, true
}
