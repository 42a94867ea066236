package mesh

import "gonum.org/v1/gonum/spatial/r3"

// SplitResult describes the elements created by Split.
type SplitResult struct {
	// Vertex is the inserted vertex.
	Vertex Vertex
	// Edge is the new half of the split edge. The split edge keeps
	// its handle and now ends at Vertex.
	Edge Edge
	// Faces are the faces created on either side of the split edge,
	// NoFace on a boundary side. Faces[i] was cut from Parents[i].
	Faces   [2]Face
	Parents [2]Face
}

// Split inserts a new vertex at p on edge e and connects it to the
// opposite corners of the (at most two) incident triangles, turning
// each of them into two triangles.
//
// With e's half-edge 0 going from a to b, after the split e goes from the
// new vertex to b and SplitResult.Edge joins a and the new vertex.
func (m *Mesh) Split(e Edge, p r3.Vec) SplitResult {
	if m.edeleted[e] {
		panic("mesh: split of deleted edge")
	}
	h0 := e.HalfEdge(0)
	o0 := h0.Opposite()
	va := m.To(o0)

	vn := m.newVertex(p)
	e1 := m.newEdge(vn, va)
	t1 := e1.Opposite()

	f0 := m.Face(h0)
	f3 := m.Face(o0)
	res := SplitResult{
		Vertex:  vn,
		Edge:    e1.Edge(),
		Faces:   [2]Face{NoFace, NoFace},
		Parents: [2]Face{f0, f3},
	}

	m.verts[vn].out = h0
	m.hes[o0].to = vn

	if f0 != NoFace {
		h1 := m.Next(h0)
		h2 := m.Next(h1)
		v1 := m.To(h1)

		e0 := m.newEdge(vn, v1)
		t0 := e0.Opposite()

		f1 := m.newFace()
		m.faces[f0].he = h0
		m.faces[f1].he = h2

		m.hes[h1].face = f0
		m.hes[t0].face = f0
		m.hes[h0].face = f0

		m.hes[h2].face = f1
		m.hes[t1].face = f1
		m.hes[e0].face = f1

		m.setNext(h0, h1)
		m.setNext(h1, t0)
		m.setNext(t0, h0)

		m.setNext(e0, h2)
		m.setNext(h2, t1)
		m.setNext(t1, e0)
		res.Faces[0] = f1
	} else {
		m.setNext(m.Prev(h0), t1)
		m.setNext(t1, h0)
	}

	if f3 != NoFace {
		o1 := m.Next(o0)
		o2 := m.Next(o1)
		v3 := m.To(o1)

		e2 := m.newEdge(vn, v3)
		t2 := e2.Opposite()

		f2 := m.newFace()
		m.faces[f2].he = o1
		m.faces[f3].he = o0

		m.hes[o1].face = f2
		m.hes[t2].face = f2
		m.hes[e1].face = f2

		m.hes[o2].face = f3
		m.hes[o0].face = f3
		m.hes[e2].face = f3

		m.setNext(e1, o1)
		m.setNext(o1, t2)
		m.setNext(t2, e1)

		m.setNext(o0, e2)
		m.setNext(e2, o2)
		m.setNext(o2, o0)
		res.Faces[1] = f2
	} else {
		m.setNext(e1, m.Next(o0))
		m.setNext(o0, e1)
		m.verts[vn].out = e1
	}

	if m.verts[va].out == h0 {
		m.verts[va].out = t1
	}
	return res
}

// IsFlipOK reports whether e can be flipped without breaking the mesh:
// e must be interior, and the diagonal it would become must not exist.
func (m *Mesh) IsFlipOK(e Edge) bool {
	if m.edeleted[e] || m.IsBoundaryEdge(e) {
		return false
	}
	h := e.HalfEdge(0)
	a := m.To(m.Next(h))
	b := m.To(m.Next(h.Opposite()))
	if a == b {
		return false
	}
	return m.FindHalfEdge(a, b) == NoHalfEdge
}

// Flip replaces e by the other diagonal of the quad formed by its two
// incident triangles. The caller must check IsFlipOK first.
func (m *Mesh) Flip(e Edge) {
	a0 := e.HalfEdge(0)
	b0 := a0.Opposite()

	a1 := m.Next(a0)
	a2 := m.Next(a1)
	b1 := m.Next(b0)
	b2 := m.Next(b1)

	va0 := m.To(a0)
	va1 := m.To(a1)
	vb0 := m.To(b0)
	vb1 := m.To(b1)

	fa := m.Face(a0)
	fb := m.Face(b0)

	m.hes[a0].to = va1
	m.hes[b0].to = vb1

	m.setNext(a0, a2)
	m.setNext(a2, b1)
	m.setNext(b1, a0)

	m.setNext(b0, b2)
	m.setNext(b2, a1)
	m.setNext(a1, b0)

	m.hes[a1].face = fb
	m.hes[b1].face = fa

	m.faces[fa].he = a0
	m.faces[fb].he = b0

	if m.verts[va0].out == b0 {
		m.verts[va0].out = a1
	}
	if m.verts[vb0].out == a0 {
		m.verts[vb0].out = b1
	}
}

// IsCollapseOK checks the link condition for collapsing h, that is,
// removing From(h) by merging it into To(h).
func (m *Mesh) IsCollapseOK(h HalfEdge) bool {
	if m.edeleted[h.Edge()] {
		return false
	}
	o := h.Opposite()
	v0 := m.To(o)
	v1 := m.To(h)
	vl, vr := NoVertex, NoVertex
	if !m.IsBoundary(h) {
		h1 := m.Next(h)
		h2 := m.Next(h1)
		vl = m.To(h1)
		// the edges v1-vl and vl-v0 must not both be boundary edges.
		if m.IsBoundary(h1.Opposite()) && m.IsBoundary(h2.Opposite()) {
			return false
		}
	}
	if !m.IsBoundary(o) {
		o1 := m.Next(o)
		o2 := m.Next(o1)
		vr = m.To(o1)
		if m.IsBoundary(o1.Opposite()) && m.IsBoundary(o2.Opposite()) {
			return false
		}
	}
	if vl == vr {
		return false
	}
	// an interior vertex of valence 3 next to the edge would be left with
	// two faces folded onto each other.
	if vl != NoVertex && m.Valence(vl) == 3 && !m.IsBoundaryVertex(vl) {
		return false
	}
	if vr != NoVertex && m.Valence(vr) == 3 && !m.IsBoundaryVertex(vr) {
		return false
	}
	// an edge joining two boundary vertices must itself be a boundary edge.
	if m.IsBoundaryVertex(v0) && m.IsBoundaryVertex(v1) && !m.IsBoundary(h) && !m.IsBoundary(o) {
		return false
	}
	// the one-rings of v0 and v1 may only share vl and vr.
	h0 := m.verts[v0].out
	g := h0
	for {
		vv := m.To(g)
		if vv != v1 && vv != vl && vv != vr && m.FindHalfEdge(vv, v1) != NoHalfEdge {
			return false
		}
		g = m.Next(g.Opposite())
		if g == h0 {
			break
		}
	}
	return true
}

// Collapse removes From(h) by merging it into To(h), deleting h's edge
// and the faces incident to it. In the face of h the edge of Prev(h) is
// removed and the edge of Next(h) is kept. In the face of the opposite
// half-edge o the edge of Next(o) is removed and the edge of Prev(o) is
// kept. It returns the surviving vertex. The caller must check
// IsCollapseOK first.
func (m *Mesh) Collapse(h HalfEdge) Vertex {
	if m.edeleted[h.Edge()] {
		panic("mesh: collapse of deleted edge")
	}
	h1 := m.Next(h)
	o := h.Opposite()
	o1 := m.Next(o)
	kept := m.To(h)

	m.collapseEdge(h)

	if m.Next(m.Next(h1)) == h1 {
		m.collapseLoop(m.Next(h1))
	}
	if m.Next(m.Next(o1)) == o1 {
		m.collapseLoop(o1)
	}
	return kept
}

func (m *Mesh) collapseEdge(h HalfEdge) {
	hn := m.Next(h)
	hp := m.Prev(h)
	o := h.Opposite()
	on := m.Next(o)
	op := m.Prev(o)
	fh := m.Face(h)
	fo := m.Face(o)
	vh := m.To(h)
	vo := m.To(o)

	for _, g := range m.Outgoing(vo, nil) {
		m.hes[g.Opposite()].to = vh
	}

	m.setNext(hp, hn)
	m.setNext(op, on)

	if fh != NoFace {
		m.faces[fh].he = hn
	}
	if fo != NoFace {
		m.faces[fo].he = on
	}

	if m.verts[vh].out == o {
		m.verts[vh].out = hn
	}
	m.adjustOutgoing(vh)

	m.verts[vo].out = NoHalfEdge
	m.verts[vo].deleted = true
	m.edeleted[h.Edge()] = true
}

// collapseLoop removes a face of two half-edges left over by collapseEdge.
func (m *Mesh) collapseLoop(h0 HalfEdge) {
	h1 := m.Next(h0)
	o0 := h0.Opposite()
	o1 := h1.Opposite()
	v0 := m.To(h0)
	v1 := m.To(h1)
	fh := m.Face(h0)
	fo := m.Face(o0)

	m.setNext(h1, m.Next(o0))
	m.setNext(m.Prev(o0), h1)

	m.hes[h1].face = fo

	m.verts[v0].out = h1
	m.adjustOutgoing(v0)
	m.verts[v1].out = o1
	m.adjustOutgoing(v1)

	if fo != NoFace && m.faces[fo].he == o0 {
		m.faces[fo].he = h1
	}
	if fh != NoFace {
		m.faces[fh].he = NoHalfEdge
		m.faces[fh].deleted = true
	}
	m.edeleted[h0.Edge()] = true
}
