// Package sifter correlates detected image keypoints with annotated mesh
// vertices and accumulates per-model hit histograms.
package sifter

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Monnte/car-dataset-generator/internal/annotation"
)

// vertexPoint is a vertex in image coordinates with row 0 at the top.
type vertexPoint struct {
	x, y float64
	idx  int // position in Index.vertices
}

func (p vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertexPoint)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p vertexPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance.
func (p vertexPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(vertexPoint)
	dx := p.x - q.x
	dy := p.y - q.y
	return dx*dx + dy*dy
}

type vertexPoints []vertexPoint

func (p vertexPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertexPoints) Len() int                              { return len(p) }
func (p vertexPoints) Pivot(d kdtree.Dim) int                { return vertexPlane{vertexPoints: p, Dim: d}.Pivot() }
func (p vertexPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// vertexPlane pivots points on one dimension. Median of medians keeps the
// tree shape independent of random sampling.
type vertexPlane struct {
	kdtree.Dim
	vertexPoints
}

func (p vertexPlane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.vertexPoints[i].x < p.vertexPoints[j].x
	}
	return p.vertexPoints[i].y < p.vertexPoints[j].y
}
func (p vertexPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	p.vertexPoints = p.vertexPoints[start:end]
	return p
}
func (p vertexPlane) Swap(i, j int) {
	p.vertexPoints[i], p.vertexPoints[j] = p.vertexPoints[j], p.vertexPoints[i]
}

// Index answers nearest-vertex queries for one annotated image.
type Index struct {
	tree     *kdtree.Tree
	vertices []annotation.Vertex
}

// NewIndex builds a k-d tree over the vertices of one annotation. The
// annotation measures y from the bottom edge, so points are stored at
// imageHeight - y to match image rows.
func NewIndex(vertices []annotation.Vertex, imageHeight int) *Index {
	pts := make(vertexPoints, len(vertices))
	for i, v := range vertices {
		pts[i] = vertexPoint{
			x:   float64(v.X),
			y:   float64(imageHeight) - float64(v.Y),
			idx: i,
		}
	}
	ix := &Index{vertices: vertices}
	if len(pts) > 0 {
		ix.tree = kdtree.New(pts, false)
	}
	return ix
}

// Len returns the number of indexed vertices.
func (ix *Index) Len() int {
	return len(ix.vertices)
}

// Nearest returns the vertex closest to image point (x, y) and its
// distance in pixels. Equidistant vertices resolve to the lowest id.
func (ix *Index) Nearest(x, y float64) (annotation.Vertex, float64, bool) {
	if ix.tree == nil {
		return annotation.Vertex{}, 0, false
	}

	q := vertexPoint{x: x, y: y, idx: -1}
	c, d2 := ix.tree.Nearest(q)
	if c == nil {
		return annotation.Vertex{}, 0, false
	}
	best := c.(vertexPoint)

	// Collect every vertex at the same distance.
	keep := kdtree.NewDistKeeper(d2)
	ix.tree.NearestSet(keep, q)
	for _, cd := range keep.Heap {
		p, ok := cd.Comparable.(vertexPoint)
		if !ok || cd.Dist != d2 {
			continue
		}
		if ix.vertices[p.idx].ID < ix.vertices[best.idx].ID {
			best = p
		}
	}

	return ix.vertices[best.idx], sqrt(d2), true
}
