package remesh

import (
	"time"

	"github.com/soypat/remesh/mesh"
)

// SplitLongEdges splits edges of the selected faces longer than maxLength
// at their midpoint, longest first, until no such edge remains. Edges
// created by a split are split again if still too long. It returns the
// number of splits. A maxLength that is not positive does nothing.
func (r *Remesher) SplitLongEdges(maxLength float64) int {
	r.mustInit()
	start := time.Now()
	if !(maxLength > 0) {
		r.report(StageSplit, 0, 0, start)
		return 0
	}
	var seed []mesh.Edge
	for _, e := range r.m.Edges() {
		if r.edgeClass(e) != edgeOutside {
			seed = append(seed, e)
		}
	}
	n, skipped := r.splitLongEdges(seed, maxLength*maxLength, true)
	r.report(StageSplit, n, skipped, start)
	return n
}

func (r *Remesher) canSplit(e mesh.Edge) bool {
	class := r.edgeClass(e)
	return class != edgeOutside && (!r.protect || class == edgePatch)
}

// splitLongEdges splits the edges of seed longer than sqrt(sqMax) and the
// halves they produce. When diagonals is set, the edges joining a new
// vertex to the opposite corners are queued as well.
func (r *Remesher) splitLongEdges(seed []mesh.Edge, sqMax float64, diagonals bool) (splits, skipped int) {
	q := &edgeQueue{longest: true}
	for _, e := range seed {
		if l2 := r.sqLength(e); l2 > sqMax {
			q.push(e, l2)
		}
	}
	var buf [16]mesh.HalfEdge
	for q.Len() > 0 {
		it := q.pop()
		if r.m.EdgeDeleted(it.e) || r.sqLength(it.e) != it.l2 {
			continue // stale, requeued when it changed.
		}
		if !r.canSplit(it.e) {
			skipped++
			continue
		}
		res := r.split(it.e)
		splits++
		for _, e := range [2]mesh.Edge{it.e, res.Edge} {
			if l2 := r.sqLength(e); l2 > sqMax {
				q.push(e, l2)
			}
		}
		if !diagonals {
			continue
		}
		for _, h := range r.m.Outgoing(res.Vertex, buf[:0]) {
			e := h.Edge()
			if e == it.e || e == res.Edge || !r.canSplit(e) {
				continue
			}
			if l2 := r.sqLength(e); l2 > sqMax {
				q.push(e, l2)
			}
		}
	}
	return splits, skipped
}

// split inserts a vertex at the midpoint of e. The new half of e inherits
// its constraint flag and new faces inherit the selection and patch of
// the face they were cut from.
func (r *Remesher) split(e mesh.Edge) mesh.SplitResult {
	a, b := r.m.EdgeVertices(e)
	p := r.traits.Midpoint(r.point(a), r.point(b))
	constrained := r.ecmap != nil && r.ecmap.IsConstrained(e)
	res := r.m.Split(e, p)
	r.points.SetPoint(res.Vertex, p)
	if constrained {
		r.ecmap.SetConstrained(res.Edge, true)
	}
	for i, f := range res.Faces {
		if f == mesh.NoFace {
			continue
		}
		parent := res.Parents[i]
		r.setSelected(f, r.IsSelected(parent))
		r.patches.SetPatch(f, r.patches.Patch(parent))
	}
	r.markMoved(res.Vertex)
	return res
}
