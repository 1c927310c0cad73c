package model

import "github.com/Monnte/car-dataset-generator/pkg/math"

// Object is a mesh placed in the world by a fixed transform. World-space
// vertices are computed once; the transform must not change afterwards.
type Object struct {
	Mesh      *Mesh
	Transform math.Mat4

	world  []math.Vec3
	bounds Bounds
}

// NewObject places mesh in the world.
func NewObject(mesh *Mesh, transform math.Mat4) *Object {
	o := &Object{
		Mesh:      mesh,
		Transform: transform,
		world:     make([]math.Vec3, len(mesh.Vertices)),
		bounds:    EmptyBounds(),
	}
	for i, v := range mesh.Vertices {
		w := transform.TransformPoint(v)
		o.world[i] = w
		o.bounds.Extend(w)
	}
	return o
}

// WorldVertices returns world-space vertex positions indexed by vertex id.
// The slice is shared and must not be modified.
func (o *Object) WorldVertices() []math.Vec3 {
	return o.world
}

// WorldBounds returns the world-space bounding box.
func (o *Object) WorldBounds() Bounds {
	return o.bounds
}

// TriangleCount returns the number of faces.
func (o *Object) TriangleCount() int {
	return len(o.Mesh.Faces)
}

// Triangle returns the world-space corners of face i.
func (o *Object) Triangle(i int) [3]math.Vec3 {
	f := o.Mesh.Faces[i]
	return [3]math.Vec3{o.world[f[0]], o.world[f[1]], o.world[f[2]]}
}
