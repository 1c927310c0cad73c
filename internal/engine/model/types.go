// Package model loads triangle meshes and places them in the world.
package model

import (
	gomath "math"

	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Mesh is an indexed triangle mesh. Vertex indices are stable: loading the
// same file always yields the same ordering.
type Mesh struct {
	Vertices []math.Vec3
	Faces    [][3]int
	Bounds   Bounds
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// EmptyBounds returns an inverted box that any Extend call replaces.
func EmptyBounds() Bounds {
	inf := gomath.Inf(1)
	return Bounds{
		Min: math.Vec3{X: inf, Y: inf, Z: inf},
		Max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p math.Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// IsEmpty reports whether the box contains no points.
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Center returns the midpoint of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box extents.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns half the box diagonal.
func (b Bounds) Radius() float64 {
	return b.Size().Length() / 2
}

// Corners returns the 8 box corners.
func (b Bounds) Corners() [8]math.Vec3 {
	var c [8]math.Vec3
	for i := range c {
		p := b.Min
		if i&1 != 0 {
			p.X = b.Max.X
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		c[i] = p
	}
	return c
}
