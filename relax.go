package remesh

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
)

// TangentialRelaxation moves every free vertex of the selected faces
// towards the centroid of its neighbors, restricted to the tangent plane
// given by the area weighted normal of its faces. When relaxConstrained
// is set, vertices inside smooth constraint polylines slide along the
// chord joining their two polyline neighbors towards its midpoint.
//
// Each of the steps computes all new positions from the current ones and
// then writes them. A move that would flip or flatten a triangle around
// the vertex is dropped. It returns the number of vertex moves.
func (r *Remesher) TangentialRelaxation(relaxConstrained bool, steps int) int {
	r.mustInit()
	start := time.Now()
	type move struct {
		v mesh.Vertex
		p r3.Vec
	}
	var moves []move
	var nbuf [16]mesh.Vertex
	var fbuf [16]mesh.Face
	var relaxed, skipped int
	for step := 0; step < steps; step++ {
		moves = moves[:0]
		for _, v := range r.m.Vertices() {
			info := r.classify(v)
			p := r.point(v)
			var target r3.Vec
			switch {
			case info.kind == vertexFree:
				nbrs := r.m.Neighbors(v, nbuf[:0])
				if len(nbrs) == 0 {
					continue
				}
				c := make(d3.Set, len(nbrs))
				for i, n := range nbrs {
					c[i] = r.point(n)
				}
				var normal r3.Vec
				for _, f := range r.m.IncidentFaces(v, fbuf[:0]) {
					t := r.m.FaceVertices(f)
					normal = r3.Add(normal, r.traits.TriangleNormal(r.point(t[0]), r.point(t[1]), r.point(t[2])))
				}
				if r3.Norm2(normal) == 0 {
					continue
				}
				target = r3.Add(p, d3.Reject(r3.Sub(c.Centroid(), p), r3.Unit(normal)))

			case info.kind == vertexPolyline && relaxConstrained:
				pa, pb := r.point(info.along[0]), r.point(info.along[1])
				dir := r3.Sub(pb, pa)
				if r3.Norm2(dir) == 0 {
					continue
				}
				dir = r3.Unit(dir)
				disp := r3.Sub(d3.Midpoint(pa, pb), p)
				target = r3.Add(p, r3.Scale(r3.Dot(disp, dir), dir))

			default:
				continue
			}
			if target != p && d3.Finite(target) {
				moves = append(moves, move{v: v, p: target})
			}
		}
		for _, mv := range moves {
			if !r.moveKeepsShape(mv.v, mv.p) {
				skipped++
				continue
			}
			r.points.SetPoint(mv.v, mv.p)
			r.markMoved(mv.v)
			relaxed++
		}
	}
	r.report(StageRelax, relaxed, skipped, start)
	return relaxed
}

// moveKeepsShape reports whether v can be moved to p without flipping or
// flattening any of its faces.
func (r *Remesher) moveKeepsShape(v mesh.Vertex, p r3.Vec) bool {
	pv := r.point(v)
	var buf [16]mesh.HalfEdge
	for _, h := range r.m.Outgoing(v, buf[:0]) {
		if r.m.IsBoundary(h) {
			continue
		}
		pb := r.point(r.m.To(h))
		pc := r.point(r.m.To(r.m.Next(h)))
		before := r.traits.TriangleNormal(pv, pb, pc)
		after := r.traits.TriangleNormal(p, pb, pc)
		if r3.Dot(before, after) <= 0 || (d3.Triangle{p, pb, pc}).Degenerate(degenerateTol) {
			return false
		}
	}
	return true
}
