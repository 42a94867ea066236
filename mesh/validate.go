package mesh

import "fmt"

// Validate checks the connectivity invariants of the mesh: consistent
// next/prev/opposite links, triangular faces, boundary half-edges linked
// into loops, each edge bordering one or two faces, manifold vertex fans and
// no duplicate edges. It returns the first violation found.
func (m *Mesh) Validate() error {
	for e := range m.edeleted {
		if m.edeleted[e] {
			continue
		}
		if m.IsBoundary(Edge(e).HalfEdge(0)) && m.IsBoundary(Edge(e).HalfEdge(1)) {
			return fmt.Errorf("edge %d borders no face", e)
		}
		for i := 0; i < 2; i++ {
			h := Edge(e).HalfEdge(i)
			he := m.hes[h]
			if he.next < 0 || he.prev < 0 {
				return fmt.Errorf("half-edge %d is unlinked", h)
			}
			if m.edeleted[he.next.Edge()] || m.edeleted[he.prev.Edge()] {
				return fmt.Errorf("half-edge %d links to a deleted edge", h)
			}
			if m.hes[he.next].prev != h {
				return fmt.Errorf("half-edge %d: next/prev mismatch", h)
			}
			if m.From(he.next) != he.to {
				return fmt.Errorf("half-edge %d: next does not start at its end vertex", h)
			}
			if m.hes[he.next].face != he.face {
				return fmt.Errorf("half-edge %d: next lies on another face", h)
			}
			if m.verts[he.to].deleted {
				return fmt.Errorf("half-edge %d points to deleted vertex %d", h, he.to)
			}
			if he.face != NoFace && m.faces[he.face].deleted {
				return fmt.Errorf("half-edge %d lies on deleted face %d", h, he.face)
			}
		}
	}
	for f := range m.faces {
		if m.faces[f].deleted {
			continue
		}
		h := m.faces[f].he
		if h == NoHalfEdge || m.edeleted[h.Edge()] {
			return fmt.Errorf("face %d has no half-edge", f)
		}
		if m.Next(m.Next(m.Next(h))) != h {
			return fmt.Errorf("face %d is not a triangle", f)
		}
		vs := m.FaceVertices(Face(f))
		if vs[0] == vs[1] || vs[1] == vs[2] || vs[2] == vs[0] {
			return fmt.Errorf("face %d is degenerate: %v", f, vs)
		}
		for i := 0; i < 3; i++ {
			if m.Face(h) != Face(f) {
				return fmt.Errorf("face %d: half-edge %d lies on face %d", f, h, m.Face(h))
			}
			h = m.Next(h)
		}
	}
	var seen map[Vertex]bool
	for v := range m.verts {
		if m.verts[v].deleted || m.verts[v].out == NoHalfEdge {
			continue
		}
		h0 := m.verts[v].out
		if m.edeleted[h0.Edge()] {
			return fmt.Errorf("vertex %d: outgoing half-edge %d is deleted", v, h0)
		}
		if m.From(h0) != Vertex(v) {
			return fmt.Errorf("vertex %d: outgoing half-edge %d starts at %d", v, h0, m.From(h0))
		}
		seen = make(map[Vertex]bool)
		boundary := 0
		h := h0
		for n := 0; ; n++ {
			if n > len(m.hes) {
				return fmt.Errorf("vertex %d: rotation does not close", v)
			}
			if m.IsBoundary(h) {
				boundary++
			}
			to := m.To(h)
			if seen[to] {
				return fmt.Errorf("vertex %d: duplicate edge to %d", v, to)
			}
			seen[to] = true
			h = m.Next(h.Opposite())
			if h == h0 {
				break
			}
		}
		if boundary > 1 {
			return fmt.Errorf("vertex %d joins %d boundary fans", v, boundary)
		}
		if boundary == 1 && !m.IsBoundary(h0) {
			return fmt.Errorf("vertex %d: outgoing half-edge is not the boundary one", v)
		}
	}
	// every live half-edge must be reached by its origin's rotation.
	for e := range m.edeleted {
		if m.edeleted[e] {
			continue
		}
		for i := 0; i < 2; i++ {
			h := Edge(e).HalfEdge(i)
			if m.FindHalfEdge(m.From(h), m.To(h)) == NoHalfEdge {
				return fmt.Errorf("half-edge %d is not in the fan of vertex %d", h, m.From(h))
			}
		}
	}
	return nil
}
