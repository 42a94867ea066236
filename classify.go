package remesh

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/mesh"
)

type edgeClass uint8

const (
	// edgeOutside edges border no selected face and are never touched.
	edgeOutside edgeClass = iota
	// edgePatch edges lie between two selected faces of the same patch.
	edgePatch
	// edgePatchBorder edges separate a selected face from an unselected
	// face or from a face of another patch, or are explicitly constrained.
	edgePatchBorder
	// edgeMeshBorder edges border a single selected face.
	edgeMeshBorder
)

// maxSmoothCos is the cosine of the largest turn angle between two
// constrained edges for their common vertex to still slide along them.
const maxSmoothCos = 0.8660254037844387 // cos(30°)

func (r *Remesher) edgeClass(e mesh.Edge) edgeClass {
	h := e.HalfEdge(0)
	f0 := r.m.Face(h)
	f1 := r.m.Face(h.Opposite())
	s0, s1 := r.IsSelected(f0), r.IsSelected(f1)
	switch {
	case !s0 && !s1:
		return edgeOutside
	case f0 == mesh.NoFace || f1 == mesh.NoFace:
		return edgeMeshBorder
	case s0 != s1, r.patches.Patch(f0) != r.patches.Patch(f1):
		return edgePatchBorder
	case r.ecmap != nil && r.ecmap.IsConstrained(e):
		return edgePatchBorder
	}
	return edgePatch
}

// isConstrained reports whether e may not be flipped, and may not be
// split or collapsed while constraints are protected.
func (r *Remesher) isConstrained(e mesh.Edge) bool {
	return r.edgeClass(e) != edgePatch
}

type vertexKind uint8

const (
	// vertexOutside vertices touch no selected face.
	vertexOutside vertexKind = iota
	// vertexFree vertices have no incident constrained edge.
	vertexFree
	// vertexPolyline vertices lie inside a smooth constraint polyline and
	// may slide along it or be collapsed along it.
	vertexPolyline
	// vertexLocked vertices never move: explicitly constrained vertices,
	// polyline corners, endpoints and junctions, and every constrained
	// vertex while constraints are protected.
	vertexLocked
)

type vertexInfo struct {
	kind vertexKind
	// degree is the number of incident constrained edges.
	degree int
	// along holds the neighbors across the constrained edges of a
	// polyline vertex.
	along [2]mesh.Vertex
}

func (r *Remesher) classify(v mesh.Vertex) vertexInfo {
	info := vertexInfo{along: [2]mesh.Vertex{mesh.NoVertex, mesh.NoVertex}}
	if r.m.VertexDeleted(v) {
		return info
	}
	var buf [16]mesh.HalfEdge
	inPatch := false
	for _, h := range r.m.Outgoing(v, buf[:0]) {
		if r.IsSelected(r.m.Face(h)) {
			inPatch = true
		}
		switch r.edgeClass(h.Edge()) {
		case edgePatchBorder, edgeMeshBorder:
			if info.degree < 2 {
				info.along[info.degree] = r.m.To(h)
			}
			info.degree++
		}
	}
	switch {
	case !inPatch:
		info.kind = vertexOutside
	case r.vcmap != nil && r.vcmap.IsConstrained(v):
		info.kind = vertexLocked
	case info.degree == 0:
		info.kind = vertexFree
	case info.degree != 2 || r.protect || r.isCorner(v, info.along):
		info.kind = vertexLocked
	default:
		info.kind = vertexPolyline
	}
	return info
}

// isCorner reports whether the polyline a-v-b turns by more than 30 degrees at v.
func (r *Remesher) isCorner(v mesh.Vertex, along [2]mesh.Vertex) bool {
	p := r.point(v)
	in := r3.Sub(p, r.point(along[0]))
	out := r3.Sub(r.point(along[1]), p)
	if r3.Norm2(in) == 0 || r3.Norm2(out) == 0 {
		return true
	}
	return r3.Cos(in, out) < maxSmoothCos
}

// targetValence is 4 for vertices on a border or constraint and 6 otherwise.
func (r *Remesher) targetValence(v mesh.Vertex) int {
	if r.m.IsBoundaryVertex(v) {
		return 4
	}
	var buf [16]mesh.HalfEdge
	for _, h := range r.m.Outgoing(v, buf[:0]) {
		if r.isConstrained(h.Edge()) {
			return 4
		}
	}
	return 6
}

// vertexPatch returns the patch of a face around v, or -1.
func (r *Remesher) vertexPatch(v mesh.Vertex) int {
	var buf [16]mesh.Face
	for _, f := range r.m.IncidentFaces(v, buf[:0]) {
		if r.IsSelected(f) {
			return r.patches.Patch(f)
		}
	}
	return -1
}
