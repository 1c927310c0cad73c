package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/unixpickle/model3d/model3d"

	"github.com/Monnte/car-dataset-generator/pkg/formats"
	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// ErrUnsupportedFormat is returned for model files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// Load reads a mesh, choosing the decoder by file extension.
func Load(path string) (*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		return LoadSTL(path)
	case ".obj":
		return LoadOBJ(path)
	case ".gltf", ".glb":
		return LoadGLTF(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadSTL reads an ASCII or binary STL file. STL stores unindexed
// triangles, so coincident corners are welded.
func LoadSTL(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening STL file: %w", err)
	}
	defer f.Close()

	tris, err := model3d.ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("parsing STL file: %w", err)
	}

	b := newMeshBuilder()
	for _, t := range tris {
		b.triangle(coordToVec(t[0]), coordToVec(t[1]), coordToVec(t[2]))
	}
	return b.build()
}

func coordToVec(c model3d.Coord3D) math.Vec3 {
	return math.Vec3{X: c.X, Y: c.Y, Z: c.Z}
}

// LoadOBJ reads a Wavefront OBJ file. Vertices keep their file order.
func LoadOBJ(path string) (*Mesh, error) {
	obj, err := formats.ParseOBJFile(path)
	if err != nil {
		return nil, err
	}

	vertices := make([]math.Vec3, len(obj.Positions))
	for i, p := range obj.Positions {
		vertices[i] = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}
	return NewMesh(vertices, obj.Faces)
}

// LoadGLTF reads a glTF or GLB file. Triangle primitives of every mesh
// reachable from the default scene are flattened into one welded mesh with
// node transforms applied, converted from glTF's Y-up to Z-up.
func LoadGLTF(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF file: %w", err)
	}

	b := newMeshBuilder()
	visited := make(map[int]bool)

	for _, root := range gltfRoots(doc) {
		if err := addGLTFNode(doc, root, yUpToZUp(), b, visited); err != nil {
			return nil, err
		}
	}
	return b.build()
}

// gltfRoots returns the root nodes of the default scene, or of the first
// scene when none is marked default.
func gltfRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) == 0 {
		return nil
	}
	idx := 0
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		idx = *doc.Scene
	}
	return doc.Scenes[idx].Nodes
}

func yUpToZUp() math.Mat4 {
	// (x, y, z) -> (x, -z, y)
	return math.Mat4{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, -1, 0, 0,
		0, 0, 0, 1,
	}
}

// addGLTFNode walks the node hierarchy accumulating parent transforms.
func addGLTFNode(doc *gltf.Document, idx int, parent math.Mat4, b *meshBuilder, visited map[int]bool) error {
	if idx < 0 || idx >= len(doc.Nodes) {
		return fmt.Errorf("glTF node %d out of range", idx)
	}
	if visited[idx] {
		return nil // cycle or shared instance already emitted
	}
	visited[idx] = true

	node := doc.Nodes[idx]
	world := parent.Mul(gltfNodeMatrix(node))

	if node.Mesh != nil {
		if err := addGLTFMesh(doc, *node.Mesh, world, b); err != nil {
			return fmt.Errorf("node %d: %w", idx, err)
		}
	}
	for _, child := range node.Children {
		if err := addGLTFNode(doc, child, world, b, visited); err != nil {
			return err
		}
	}
	return nil
}

func gltfNodeMatrix(node *gltf.Node) math.Mat4 {
	if node.MatrixOrDefault() != gltf.DefaultMatrix {
		var m math.Mat4
		for i, v := range node.MatrixOrDefault() {
			m[i] = v
		}
		return m
	}

	t := node.Translation
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()
	return math.FromTRS(
		math.Vec3{X: t[0], Y: t[1], Z: t[2]},
		math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		math.Vec3{X: s[0], Y: s[1], Z: s[2]},
	)
}

func addGLTFMesh(doc *gltf.Document, idx int, world math.Mat4, b *meshBuilder) error {
	if idx < 0 || idx >= len(doc.Meshes) {
		return fmt.Errorf("glTF mesh %d out of range", idx)
	}

	for pi, prim := range doc.Meshes[idx].Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("primitive %d positions: %w", pi, err)
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("primitive %d indices: %w", pi, err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		corner := func(i uint32) math.Vec3 {
			p := positions[i]
			return world.TransformPoint(math.Vec3{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
		}
		for i := 0; i+2 < len(indices); i += 3 {
			if int(indices[i]) >= len(positions) || int(indices[i+1]) >= len(positions) || int(indices[i+2]) >= len(positions) {
				return fmt.Errorf("primitive %d: %w", pi, ErrInvalidFaceIndex)
			}
			b.triangle(corner(indices[i]), corner(indices[i+1]), corner(indices[i+2]))
		}
	}
	return nil
}
