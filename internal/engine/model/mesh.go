package model

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Mesh errors.
var (
	ErrEmptyMesh        = errors.New("mesh has no triangles")
	ErrInvalidFaceIndex = errors.New("face references a missing vertex")
)

// weldEpsilon is the grid size used to merge coincident positions.
const weldEpsilon = 1e-6

// NewMesh builds a mesh from an indexed vertex list, keeping the given order.
// Degenerate faces (repeated indices) are dropped.
func NewMesh(vertices []math.Vec3, faces [][3]int) (*Mesh, error) {
	mesh := &Mesh{
		Vertices: vertices,
		Faces:    make([][3]int, 0, len(faces)),
		Bounds:   EmptyBounds(),
	}

	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(vertices) {
				return nil, fmt.Errorf("%w: face %d index %d", ErrInvalidFaceIndex, i, idx)
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		mesh.Faces = append(mesh.Faces, f)
	}
	if len(mesh.Faces) == 0 {
		return nil, ErrEmptyMesh
	}

	for _, v := range vertices {
		mesh.Bounds.Extend(v)
	}
	return mesh, nil
}

// meshBuilder welds triangle soup into an indexed mesh. Vertices are
// numbered in order of first appearance.
type meshBuilder struct {
	vertices []math.Vec3
	faces    [][3]int
	index    map[[3]int64]int
}

func newMeshBuilder() *meshBuilder {
	return &meshBuilder{index: make(map[[3]int64]int)}
}

func (b *meshBuilder) vertex(p math.Vec3) int {
	// Group by quantized position for O(1) lookup.
	key := [3]int64{
		int64(gomath.Round(p.X / weldEpsilon)),
		int64(gomath.Round(p.Y / weldEpsilon)),
		int64(gomath.Round(p.Z / weldEpsilon)),
	}
	if idx, ok := b.index[key]; ok {
		return idx
	}
	idx := len(b.vertices)
	b.vertices = append(b.vertices, p)
	b.index[key] = idx
	return idx
}

func (b *meshBuilder) triangle(p0, p1, p2 math.Vec3) {
	b.faces = append(b.faces, [3]int{b.vertex(p0), b.vertex(p1), b.vertex(p2)})
}

func (b *meshBuilder) build() (*Mesh, error) {
	return NewMesh(b.vertices, b.faces)
}

// FromTriangles welds a triangle soup into an indexed mesh.
func FromTriangles(tris [][3]math.Vec3) (*Mesh, error) {
	b := newMeshBuilder()
	for _, t := range tris {
		b.triangle(t[0], t[1], t[2])
	}
	return b.build()
}

// NewBox builds a closed box with 8 vertices and 12 outward-facing triangles.
// Vertex i has X from max when bit 0 is set, Y when bit 1 is set and Z when
// bit 2 is set.
func NewBox(min, max math.Vec3) *Mesh {
	b := Bounds{Min: min, Max: max}
	corners := b.Corners()
	vertices := corners[:]

	faces := [][3]int{
		{0, 2, 3}, {0, 3, 1}, // -Z
		{4, 5, 7}, {4, 7, 6}, // +Z
		{0, 1, 5}, {0, 5, 4}, // -Y
		{2, 6, 7}, {2, 7, 3}, // +Y
		{0, 4, 6}, {0, 6, 2}, // -X
		{1, 3, 7}, {1, 7, 5}, // +X
	}

	return &Mesh{Vertices: vertices, Faces: faces, Bounds: b}
}
