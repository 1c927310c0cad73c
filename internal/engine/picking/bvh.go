package picking

import (
	"sort"

	"github.com/Monnte/car-dataset-generator/pkg/math"
)

// Triangles is a read-only source of world-space triangles.
type Triangles interface {
	TriangleCount() int
	Triangle(i int) [3]math.Vec3
}

// Hit describes the first intersection along a ray.
type Hit struct {
	T        float64
	Point    math.Vec3
	Triangle int
	Normal   math.Vec3 // geometric normal, facing the ray origin
}

const leafSize = 4

type bvhNode struct {
	box         AABB
	left, right int // child node indices, -1 for leaves
	start, end  int // triangle range in BVH.order
}

// BVH is a bounding volume hierarchy over a fixed triangle set.
// It is immutable after construction and safe for concurrent queries.
type BVH struct {
	tris  [][3]math.Vec3
	order []int
	nodes []bvhNode
}

// NewBVH builds a hierarchy by median split of triangle centroids along
// the longest axis of each node.
func NewBVH(src Triangles) *BVH {
	n := src.TriangleCount()
	b := &BVH{
		tris:  make([][3]math.Vec3, n),
		order: make([]int, n),
	}
	centroids := make([]math.Vec3, n)
	for i := 0; i < n; i++ {
		t := src.Triangle(i)
		b.tris[i] = t
		b.order[i] = i
		centroids[i] = t[0].Add(t[1]).Add(t[2]).Scale(1.0 / 3)
	}
	if n > 0 {
		b.build(0, n, centroids)
	}
	return b
}

func (b *BVH) triangleBox(i int) AABB {
	t := b.tris[i]
	return AABB{
		Min: t[0].Min(t[1]).Min(t[2]),
		Max: t[0].Max(t[1]).Max(t[2]),
	}
}

func (b *BVH) build(start, end int, centroids []math.Vec3) int {
	box := b.triangleBox(b.order[start])
	cbox := AABB{Min: centroids[b.order[start]], Max: centroids[b.order[start]]}
	for _, idx := range b.order[start+1 : end] {
		box = box.Union(b.triangleBox(idx))
		cbox = cbox.Union(AABB{Min: centroids[idx], Max: centroids[idx]})
	}

	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{box: box, left: -1, right: -1, start: start, end: end})
	if end-start <= leafSize {
		return nodeIdx
	}

	size := cbox.Max.Sub(cbox.Min)
	axis := 0
	if size.Y > size.X {
		axis = 1
	}
	if size.Z > size.Axis(axis) {
		axis = 2
	}
	if size.Axis(axis) == 0 {
		return nodeIdx // all centroids coincide
	}

	part := b.order[start:end]
	sort.SliceStable(part, func(i, j int) bool {
		return centroids[part[i]].Axis(axis) < centroids[part[j]].Axis(axis)
	})
	mid := start + (end-start)/2

	left := b.build(start, mid, centroids)
	right := b.build(mid, end, centroids)
	b.nodes[nodeIdx].left = left
	b.nodes[nodeIdx].right = right
	return nodeIdx
}

// Len returns the number of triangles.
func (b *BVH) Len() int {
	return len(b.tris)
}

// Bounds returns the box around all triangles.
func (b *BVH) Bounds() AABB {
	if len(b.nodes) == 0 {
		return AABB{}
	}
	return b.nodes[0].box
}

// FirstHit returns the nearest intersection closer than maxT.
// Ties between triangles resolve to the lowest triangle index.
func (b *BVH) FirstHit(r Ray, maxT float64) (Hit, bool) {
	if len(b.nodes) == 0 {
		return Hit{}, false
	}
	if _, ok := r.IntersectAABB(b.nodes[0].box); !ok {
		return Hit{}, false
	}

	best := Hit{T: maxT, Triangle: -1}
	stack := make([]int, 0, 64)
	stack = append(stack, 0)

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[idx]

		tmin, _, ok := r.slabs(node.box)
		if !ok || tmin > best.T {
			continue
		}

		if node.left < 0 {
			for _, ti := range b.order[node.start:node.end] {
				t := b.tris[ti]
				d, hit := r.IntersectTriangle(t[0], t[1], t[2])
				if !hit || d > best.T {
					continue
				}
				if d == best.T && best.Triangle >= 0 && ti > best.Triangle {
					continue
				}
				best.T = d
				best.Triangle = ti
			}
			continue
		}
		stack = append(stack, node.right, node.left)
	}

	if best.Triangle < 0 {
		return Hit{}, false
	}

	t := b.tris[best.Triangle]
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Normalize()
	if n.Dot(r.Direction) > 0 {
		n = n.Scale(-1)
	}
	best.Point = r.At(best.T)
	best.Normal = n
	return best, true
}

// Occluded reports whether anything lies between the ray origin and maxT.
func (b *BVH) Occluded(r Ray, maxT float64) bool {
	_, hit := b.FirstHit(r, maxT)
	return hit
}
