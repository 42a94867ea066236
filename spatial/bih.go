package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
)

const (
	leaf = iota
	xClip
	yClip
	zClip
)

// leafSize is the maximum number of triangles stored in a leaf.
const leafSize = 4

type bihNode struct {
	// offset to children is stored in the upper bits, lower two bits are
	// the clipping axis or leaf flag.
	flags int
	// either the left and right clipping plane values as float64 bits
	// or the range of triangles that belong to this leaf.
	left, right uint64
}

func (n *bihNode) isLeaf() bool { return n.flags&3 == leaf }
func (n *bihNode) axis() int { return n.flags & 3 }
func (n *bihNode) children() int { return n.flags >> 2 }
func (n *bihNode) leftClip() float64 { return math.Float64frombits(n.left) }
func (n *bihNode) rightClip() float64 { return math.Float64frombits(n.right) }
func (n *bihNode) span() (start, end int) { return int(n.left), int(n.right) }

// BIH is a bounding interval hierarchy over a triangle soup answering
// exact closest point queries. It is read only once built and may be
// queried from several goroutines.
type BIH struct {
	tris  []d3.Triangle
	ids   []int // index of each stored triangle in the input slice.
	nodes []bihNode
	bb    d3.Box
}

// NewBIH builds a hierarchy over tris. Degenerate triangles are skipped
// since they add nothing their edges' neighbors do not.
func NewBIH(tris [][3]r3.Vec) *BIH {
	b := &BIH{bb: d3.EmptyBox()}
	for i, t := range tris {
		tri := d3.Triangle(t)
		if tri.Degenerate(1e-12) || !d3.Finite(t[0]) || !d3.Finite(t[1]) || !d3.Finite(t[2]) {
			continue
		}
		b.tris = append(b.tris, tri)
		b.ids = append(b.ids, i)
		for _, v := range t {
			b.bb = b.bb.Include(v)
		}
	}
	if len(b.tris) == 0 {
		return b
	}
	centroids := make([]r3.Vec, len(b.tris))
	for i := range b.tris {
		centroids[i] = b.tris[i].Centroid()
	}
	order := make([]int, len(b.tris))
	for i := range order {
		order[i] = i
	}
	b.nodes = make([]bihNode, 1, 2*len(b.tris)/leafSize+1)
	b.subdivide(0, 0, order, centroids, b.bb)

	// store triangles in leaf order.
	sorted := make([]d3.Triangle, len(order))
	ids := make([]int, len(order))
	for i, j := range order {
		sorted[i] = b.tris[j]
		ids[i] = b.ids[j]
	}
	b.tris, b.ids = sorted, ids
	return b
}

// subdivide splits the triangles in order (a window of the full order
// starting at offset) by the median centroid along the longest axis of bb.
func (b *BIH) subdivide(nodeIdx, offset int, order []int, centroids []r3.Vec, bb d3.Box) {
	if len(order) <= leafSize {
		b.nodes[nodeIdx] = bihNode{
			flags: leaf,
			left:  uint64(offset),
			right: uint64(offset + len(order)),
		}
		return
	}
	// classical heuristic, the longest axis using the median as the pivot point.
	dims := bb.Size()
	axis := zClip
	if dims.X >= dims.Y && dims.X >= dims.Z {
		axis = xClip
	} else if dims.Y >= dims.X && dims.Y >= dims.Z {
		axis = yClip
	}
	sort.Slice(order, func(i, j int) bool {
		return component(centroids[order[i]], axis) < component(centroids[order[j]], axis)
	})
	half := len(order) / 2
	leftBB, rightBB := d3.EmptyBox(), d3.EmptyBox()
	for _, ti := range order[:half] {
		for _, v := range b.tris[ti] {
			leftBB = leftBB.Include(v)
		}
	}
	for _, ti := range order[half:] {
		for _, v := range b.tris[ti] {
			rightBB = rightBB.Include(v)
		}
	}

	// append two new nodes to store the children.
	children := len(b.nodes)
	b.nodes = append(b.nodes, bihNode{}, bihNode{})
	b.subdivide(children, offset, order[:half], centroids, leftBB)
	b.subdivide(children+1, offset+half, order[half:], centroids, rightBB)

	b.nodes[nodeIdx] = bihNode{
		flags: children<<2 | axis,
		left:  math.Float64bits(component(leftBB.Max, axis)),
		right: math.Float64bits(component(rightBB.Min, axis)),
	}
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case xClip:
		return v.X
	case yClip:
		return v.Y
	default:
		return v.Z
	}
}

func clipBoxes(n *bihNode, bb d3.Box) (left, right d3.Box) {
	left, right = bb, bb
	switch n.axis() {
	case xClip:
		left.Max.X = n.leftClip()
		right.Min.X = n.rightClip()
	case yClip:
		left.Max.Y = n.leftClip()
		right.Min.Y = n.rightClip()
	case zClip:
		left.Max.Z = n.leftClip()
		right.Min.Z = n.rightClip()
	}
	return left, right
}

// Len returns the number of triangles stored.
func (b *BIH) Len() int { return len(b.tris) }

// Bounds returns the bounding box of the stored triangles.
func (b *BIH) Bounds() r3.Box { return r3.Box(b.bb) }

// ClosestPoint returns the point on the stored triangles closest to p and
// the index, in the slice given to NewBIH, of the triangle it lies on.
// An empty hierarchy returns p and -1.
func (b *BIH) ClosestPoint(p r3.Vec) (r3.Vec, int) {
	if len(b.tris) == 0 {
		return p, -1
	}
	best := nearest{dist2: math.Inf(1), tri: -1}
	b.nearest(p, 0, b.bb, &best)
	return best.point, b.ids[best.tri]
}

// Distance returns the unsigned distance from p to the stored triangles.
func (b *BIH) Distance(p r3.Vec) float64 {
	if len(b.tris) == 0 {
		return math.Inf(1)
	}
	q, _ := b.ClosestPoint(p)
	return r3.Norm(r3.Sub(p, q))
}

type nearest struct {
	dist2 float64
	point r3.Vec
	tri   int
}

func (b *BIH) nearest(p r3.Vec, idx int, bb d3.Box, best *nearest) {
	n := &b.nodes[idx]
	if n.isLeaf() {
		start, end := n.span()
		for i := start; i < end; i++ {
			t := &b.tris[i]
			q := ClosestOnTriangle(p, t[0], t[1], t[2])
			if d2 := d3.Dist2(p, q); d2 < best.dist2 {
				best.dist2, best.point, best.tri = d2, q, i
			}
		}
		return
	}
	// visit the closer child first.
	leftBB, rightBB := clipBoxes(n, bb)
	leftD2 := leftBB.Dist2(p)
	rightD2 := rightBB.Dist2(p)
	left := n.children()
	right := left + 1
	if rightD2 < leftD2 {
		left, right = right, left
		leftBB, rightBB = rightBB, leftBB
		leftD2, rightD2 = rightD2, leftD2
	}
	if leftD2 <= best.dist2 {
		b.nearest(p, left, leftBB, best)
	}
	if rightD2 <= best.dist2 {
		b.nearest(p, right, rightBB, best)
	}
}
