package remesh

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
)

// degenerateTol is the smallest ratio of twice a triangle's area to its
// squared longest side accepted for triangles created by an edit.
const degenerateTol = 1e-6

// CollapseShortEdges collapses edges of the selected faces shorter than
// low, shortest first. A collapse is skipped when it would create an edge
// longer than high, break the link condition, invert or flatten a
// triangle, or move a constrained vertex. Explicitly constrained edges are
// only collapsed when collapseConstraints is set and constraints are not
// protected. It returns the number of collapses.
func (r *Remesher) CollapseShortEdges(low, high float64, collapseConstraints bool) int {
	r.mustInit()
	start := time.Now()
	sqLow, sqHigh := low*low, high*high
	q := &edgeQueue{}
	for _, e := range r.m.Edges() {
		if r.edgeClass(e) == edgeOutside {
			continue
		}
		if l2 := r.sqLength(e); l2 < sqLow {
			q.push(e, l2)
		}
	}
	var collapses, skipped int
	var buf [16]mesh.HalfEdge
	for q.Len() > 0 {
		it := q.pop()
		if r.m.EdgeDeleted(it.e) || r.sqLength(it.e) != it.l2 {
			continue
		}
		h, ok := r.collapsible(it.e, sqHigh, collapseConstraints)
		if !ok {
			skipped++
			continue
		}
		kept := r.collapse(h)
		collapses++
		for _, g := range r.m.Outgoing(kept, buf[:0]) {
			e := g.Edge()
			if r.edgeClass(e) == edgeOutside {
				continue
			}
			if l2 := r.sqLength(e); l2 < sqLow {
				q.push(e, l2)
			}
		}
	}
	r.report(StageCollapse, collapses, skipped, start)
	return collapses
}

// collapsible returns the half-edge whose origin should be removed to
// collapse e, or false if e may not be collapsed.
//
// Patch edges may only remove a free vertex. Constrained edges may only
// remove a vertex inside a smooth constraint polyline. When both endpoints
// qualify, the one whose removal yields the shorter longest edge goes,
// ties removing the higher vertex handle.
func (r *Remesher) collapsible(e mesh.Edge, sqHigh float64, collapseConstraints bool) (mesh.HalfEdge, bool) {
	class := r.edgeClass(e)
	if class == edgeOutside {
		return mesh.NoHalfEdge, false
	}
	constrained := class != edgePatch
	if constrained {
		if r.protect {
			return mesh.NoHalfEdge, false
		}
		if r.ecmap != nil && r.ecmap.IsConstrained(e) && !collapseConstraints {
			return mesh.NoHalfEdge, false
		}
	}
	h0 := e.HalfEdge(0)
	a, b := r.m.From(h0), r.m.To(h0)
	if r.vcmap != nil && (r.vcmap.IsConstrained(a) || r.vcmap.IsConstrained(b)) {
		return mesh.NoHalfEdge, false
	}
	removable := func(v mesh.Vertex) bool {
		kind := r.classify(v).kind
		if constrained {
			return kind == vertexPolyline
		}
		return kind == vertexFree
	}
	best, bestL2 := mesh.NoHalfEdge, math.Inf(1)
	for _, h := range [2]mesh.HalfEdge{h0, h0.Opposite()} {
		if !removable(r.m.From(h)) || !r.m.IsCollapseOK(h) {
			continue
		}
		maxL2, ok := r.collapseResult(h, sqHigh)
		if !ok {
			continue
		}
		if best == mesh.NoHalfEdge || maxL2 < bestL2 || (maxL2 == bestL2 && r.m.To(h) < r.m.To(best)) {
			best, bestL2 = h, maxL2
		}
	}
	return best, best != mesh.NoHalfEdge
}

// collapseResult checks the one-ring left by collapsing h, From(h) being
// merged into To(h) at its current position. It returns the largest
// squared length of the edges that would join To(h), or false if one is
// longer than sqrt(sqHigh) or a remaining triangle would flip or degenerate.
func (r *Remesher) collapseResult(h mesh.HalfEdge, sqHigh float64) (float64, bool) {
	vo, vh := r.m.From(h), r.m.To(h)
	po, ph := r.point(vo), r.point(vh)
	maxL2 := 0.0
	var buf [16]mesh.HalfEdge
	for _, g := range r.m.Outgoing(vo, buf[:0]) {
		n := r.m.To(g)
		if n == vh {
			continue
		}
		pn := r.point(n)
		l2 := r.traits.SquaredDistance(ph, pn)
		if l2 > sqHigh {
			return 0, false
		}
		maxL2 = math.Max(maxL2, l2)
		if r.m.IsBoundary(g) {
			continue
		}
		c := r.m.To(r.m.Next(g))
		if c == vh {
			continue // face removed by the collapse.
		}
		pc := r.point(c)
		before := r.traits.TriangleNormal(po, pn, pc)
		after := r.traits.TriangleNormal(ph, pn, pc)
		if r3.Dot(before, after) <= 0 || (d3.Triangle{ph, pn, pc}).Degenerate(degenerateTol) {
			return 0, false
		}
	}
	return maxL2, true
}

// collapse merges From(h) into To(h), carrying the constraint flags of the
// removed edges over to the edges they are merged with.
func (r *Remesher) collapse(h mesh.HalfEdge) mesh.Vertex {
	if r.ecmap != nil {
		o := h.Opposite()
		if !r.m.IsBoundary(h) {
			r.mergeConstraint(r.m.Prev(h).Edge(), r.m.Next(h).Edge())
		}
		if !r.m.IsBoundary(o) {
			r.mergeConstraint(r.m.Next(o).Edge(), r.m.Prev(o).Edge())
		}
		r.ecmap.SetConstrained(h.Edge(), false)
	}
	kept := r.m.Collapse(h)
	r.markMoved(kept)
	return kept
}

func (r *Remesher) mergeConstraint(removed, kept mesh.Edge) {
	if r.ecmap.IsConstrained(removed) {
		r.ecmap.SetConstrained(kept, true)
		r.ecmap.SetConstrained(removed, false)
	}
}
