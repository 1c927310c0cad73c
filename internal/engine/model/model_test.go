package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Monnte/car-dataset-generator/pkg/math"
)

func TestNewBox(t *testing.T) {
	box := NewBox(math.V3(-1, -1, -1), math.V3(1, 1, 1))

	assert.Len(t, box.Vertices, 8)
	assert.Len(t, box.Faces, 12)
	assert.Equal(t, math.V3(-1, -1, -1), box.Vertices[0])
	assert.Equal(t, math.V3(1, 1, 1), box.Vertices[7])
	assert.Equal(t, math.V3(1, -1, -1), box.Vertices[1])
}

func TestNewBoxOutwardNormals(t *testing.T) {
	box := NewBox(math.V3(0, 0, 0), math.V3(2, 2, 2))
	center := box.Bounds.Center()

	for i, f := range box.Faces {
		a, b, c := box.Vertices[f[0]], box.Vertices[f[1]], box.Vertices[f[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		out := a.Add(b).Add(c).Scale(1.0 / 3).Sub(center)
		assert.Greater(t, n.Dot(out), 0.0, "face %d points inward", i)
	}
}

func TestFromTrianglesWeldsInFirstAppearanceOrder(t *testing.T) {
	a, b, c, d := math.V3(0, 0, 0), math.V3(1, 0, 0), math.V3(1, 1, 0), math.V3(0, 1, 0)
	mesh, err := FromTriangles([][3]math.Vec3{
		{a, b, c},
		{a, c, d},
	})
	require.NoError(t, err)

	assert.Equal(t, []math.Vec3{a, b, c, d}, mesh.Vertices)
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, mesh.Faces)
}

func TestFromTrianglesMergesNearlyEqualCorners(t *testing.T) {
	mesh, err := FromTriangles([][3]math.Vec3{
		{math.V3(0, 0, 0), math.V3(1, 0, 0), math.V3(0, 1, 0)},
		{math.V3(1e-9, 0, 0), math.V3(0, 1, 0), math.V3(0, 0, 1)},
	})
	require.NoError(t, err)
	assert.Len(t, mesh.Vertices, 4)
}

func TestNewMeshErrors(t *testing.T) {
	verts := []math.Vec3{{}, {X: 1}, {Y: 1}}

	_, err := NewMesh(verts, [][3]int{{0, 1, 3}})
	assert.True(t, errors.Is(err, ErrInvalidFaceIndex))

	_, err = NewMesh(verts, [][3]int{{0, 0, 1}})
	assert.True(t, errors.Is(err, ErrEmptyMesh))

	_, err = NewMesh(nil, nil)
	assert.True(t, errors.Is(err, ErrEmptyMesh))
}

func TestBoundsCorners(t *testing.T) {
	b := Bounds{Min: math.V3(0, 0, 0), Max: math.V3(1, 2, 3)}
	corners := b.Corners()
	assert.Equal(t, math.V3(0, 0, 0), corners[0])
	assert.Equal(t, math.V3(1, 2, 3), corners[7])
	assert.Equal(t, math.V3(0.5, 1, 1.5), b.Center())
	assert.True(t, EmptyBounds().IsEmpty())
	assert.False(t, b.IsEmpty())
}

func TestLoadOBJ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.obj")
	data := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 5 5 5\nf 1 2 3\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	mesh, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, mesh.Vertices, 4, "unreferenced vertices keep their ids")
	assert.Equal(t, [][3]int{{0, 1, 2}}, mesh.Faces)
}

func writeBinarySTL(t *testing.T, path string, tris [][3][3]float32) {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, 80))
	binary.Write(buf, binary.LittleEndian, uint32(len(tris)))
	for _, tri := range tris {
		binary.Write(buf, binary.LittleEndian, [3]float32{}) // normal
		for _, p := range tri {
			binary.Write(buf, binary.LittleEndian, p)
		}
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestLoadSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.stl")
	writeBinarySTL(t, path, [][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	})

	mesh, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, mesh.Vertices, 4)
	assert.Len(t, mesh.Faces, 2)
	assert.Equal(t, math.V3(0, 0, 0), mesh.Vertices[0])
	assert.Equal(t, math.V3(0, 1, 0), mesh.Vertices[3])
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("car.fbx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestObjectWorldVertices(t *testing.T) {
	box := NewBox(math.V3(0, 0, 0), math.V3(1, 1, 1))
	obj := NewObject(box, math.Translate(10, 0, 0))

	assert.Equal(t, math.V3(10, 0, 0), obj.WorldVertices()[0])
	assert.Equal(t, math.V3(11, 1, 1), obj.WorldVertices()[7])
	assert.Equal(t, math.V3(10, 0, 0), obj.WorldBounds().Min)
	assert.Equal(t, 12, obj.TriangleCount())
	assert.Equal(t, obj.WorldVertices()[0], obj.Triangle(0)[0])

	// Local mesh is untouched.
	assert.Equal(t, math.V3(0, 0, 0), box.Vertices[0])
}
