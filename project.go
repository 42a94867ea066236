package remesh

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
)

// ProjectToSurface moves every vertex modified since the previous
// projection back onto the reference surface and returns the number of
// vertices projected.
//
// Free vertices are moved to proj(v), or when proj is nil to the closest
// point of the original surface of their patch. That surface is only
// recorded by NewRemesher when Parms.Projection is nil and Parms.DoProject
// is set; without it free vertices stay in place. Vertices on constraint
// polylines are moved to the closest point of the original chain of
// constrained edges they lie on. Locked vertices never move.
func (r *Remesher) ProjectToSurface(proj ProjectionFunc) int {
	r.mustInit()
	start := time.Now()
	var projected, skipped int
	for i, moved := range r.moved {
		if !moved {
			continue
		}
		r.moved[i] = false
		v := mesh.Vertex(i)
		if r.m.VertexDeleted(v) {
			continue
		}
		var p r3.Vec
		info := r.classify(v)
		switch info.kind {
		case vertexFree:
			if proj != nil {
				p = proj(v)
				break
			}
			ref := r.refs[r.vertexPatch(v)]
			if ref == nil {
				skipped++
				continue
			}
			p, _ = ref.ClosestPoint(r.point(v))
		case vertexPolyline:
			if len(r.polylines) == 0 {
				skipped++
				continue
			}
			pv := r.point(v)
			p = r.closestOnPolyline(pv, d3.Midpoint(pv, r.point(info.along[0])))
		default:
			continue
		}
		if !d3.Finite(p) {
			skipped++
			continue
		}
		r.points.SetPoint(v, p)
		projected++
	}
	r.report(StageProject, projected, skipped, start)
	return projected
}

// closestOnPolyline returns the point closest to p on the chain passing
// nearest to near. Vertices pass the midpoint of one of their constrained
// edges, which lies on their own chain away from junctions.
func (r *Remesher) closestOnPolyline(p, near r3.Vec) r3.Vec {
	chain, minD2 := 0, math.Inf(1)
	for i, segs := range r.polylines {
		for _, seg := range segs {
			if d2 := d3.Dist2(near, d3.ClosestOnSegment(near, seg[0], seg[1])); d2 < minD2 {
				chain, minD2 = i, d2
			}
		}
	}
	best, bestD2 := p, math.Inf(1)
	for _, seg := range r.polylines[chain] {
		q := d3.ClosestOnSegment(p, seg[0], seg[1])
		if d2 := d3.Dist2(p, q); d2 < bestD2 {
			best, bestD2 = q, d2
		}
	}
	return best
}
