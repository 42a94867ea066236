// Package mesh implements an index based half-edge triangle mesh with the
// local topological operators needed for incremental remeshing.
//
// Vertices, half-edges, edges and faces live in arenas and are addressed by
// stable integer handles. Removed elements are only flagged as deleted and
// their handles are never reused, so handles held by callers (constraint
// maps, patch maps) stay meaningful while the mesh is being edited.
package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type (
	// Vertex is a handle to a mesh vertex.
	Vertex int
	// HalfEdge is a handle to a directed half of an edge.
	HalfEdge int
	// Edge is a handle to an undirected edge. An edge owns the
	// half-edges 2*e and 2*e+1.
	Edge int
	// Face is a handle to a triangular face.
	Face int
)

const (
	NoVertex   Vertex   = -1
	NoHalfEdge HalfEdge = -1
	NoEdge     Edge     = -1
	NoFace     Face     = -1
)

// Opposite returns the other half of h's edge.
func (h HalfEdge) Opposite() HalfEdge { return h ^ 1 }

// Edge returns the edge h belongs to.
func (h HalfEdge) Edge() Edge { return Edge(h >> 1) }

// HalfEdge returns the i'th (0 or 1) half of e.
func (e Edge) HalfEdge(i int) HalfEdge { return HalfEdge(2*int(e) + i&1) }

type halfedge struct {
	to   Vertex
	next HalfEdge
	prev HalfEdge
	face Face // NoFace for boundary half-edges.
}

type vertex struct {
	// out is an outgoing half-edge. For boundary vertices it is
	// always the outgoing boundary half-edge.
	out     HalfEdge
	deleted bool
}

type face struct {
	he      HalfEdge
	deleted bool
}

// Mesh is a 2-manifold triangle mesh, possibly with boundary.
// Boundary half-edges have no face and are linked into boundary loops.
type Mesh struct {
	points   []r3.Vec
	verts    []vertex
	hes      []halfedge
	edeleted []bool
	faces    []face
}

var errNonManifold = errors.New("non-manifold mesh")

// New builds a mesh from a list of points and counter-clockwise triangles
// indexing into points. Points not referenced by any triangle become
// isolated vertices.
func New(points []r3.Vec, triangles [][3]int) (*Mesh, error) {
	m := &Mesh{
		points: append([]r3.Vec(nil), points...),
		verts:  make([]vertex, len(points)),
		hes:    make([]halfedge, 0, 3*len(triangles)+6),
		faces:  make([]face, 0, len(triangles)),
	}
	for i := range m.verts {
		m.verts[i].out = NoHalfEdge
	}
	// directed vertex pair to half-edge.
	directed := make(map[[2]Vertex]HalfEdge, 3*len(triangles))
	outCount := make([]int, len(points))
	for fi, tri := range triangles {
		for j := 0; j < 3; j++ {
			if tri[j] < 0 || tri[j] >= len(points) {
				return nil, fmt.Errorf("triangle %d: vertex index %d out of range [0,%d)", fi, tri[j], len(points))
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
			return nil, fmt.Errorf("triangle %d: repeated vertex %v", fi, tri)
		}
		f := m.newFace()
		var hs [3]HalfEdge
		for j := 0; j < 3; j++ {
			a, b := Vertex(tri[j]), Vertex(tri[(j+1)%3])
			if _, dup := directed[[2]Vertex{a, b}]; dup {
				return nil, fmt.Errorf("triangle %d: edge (%d,%d) shared by more than two faces or with inconsistent winding: %w", fi, a, b, errNonManifold)
			}
			if h, ok := directed[[2]Vertex{b, a}]; ok {
				hs[j] = h.Opposite()
			} else {
				hs[j] = m.newEdge(a, b)
				outCount[a]++
				outCount[b]++
			}
			directed[[2]Vertex{a, b}] = hs[j]
		}
		for j := 0; j < 3; j++ {
			m.hes[hs[j]].face = f
			m.setNext(hs[j], hs[(j+1)%3])
			m.verts[tri[j]].out = hs[j]
		}
		m.faces[f].he = hs[0]
	}
	// Link boundary half-edges into loops.
	boundaryOut := make(map[Vertex]HalfEdge)
	for h := HalfEdge(0); int(h) < len(m.hes); h++ {
		if m.hes[h].face != NoFace {
			continue
		}
		from := m.From(h)
		if _, ok := boundaryOut[from]; ok {
			return nil, fmt.Errorf("vertex %d has more than one boundary fan: %w", from, errNonManifold)
		}
		boundaryOut[from] = h
	}
	for v, h := range boundaryOut {
		m.setNext(h, boundaryOut[m.To(h)])
		m.verts[v].out = h
	}
	// Every vertex must be reachable with a single rotation, otherwise
	// it joins two or more fans.
	for v := range m.verts {
		if m.verts[v].out == NoHalfEdge {
			continue
		}
		n := 0
		h0 := m.verts[v].out
		h := h0
		for {
			n++
			h = m.Next(h.Opposite())
			if h == h0 || n > outCount[v] {
				break
			}
		}
		if n != outCount[v] {
			return nil, fmt.Errorf("vertex %d joins several fans: %w", v, errNonManifold)
		}
	}
	return m, nil
}

func (m *Mesh) newEdge(from, to Vertex) HalfEdge {
	h := HalfEdge(len(m.hes))
	m.hes = append(m.hes,
		halfedge{to: to, next: NoHalfEdge, prev: NoHalfEdge, face: NoFace},
		halfedge{to: from, next: NoHalfEdge, prev: NoHalfEdge, face: NoFace},
	)
	m.edeleted = append(m.edeleted, false)
	return h
}

func (m *Mesh) newFace() Face {
	m.faces = append(m.faces, face{he: NoHalfEdge})
	return Face(len(m.faces) - 1)
}

func (m *Mesh) newVertex(p r3.Vec) Vertex {
	m.points = append(m.points, p)
	m.verts = append(m.verts, vertex{out: NoHalfEdge})
	return Vertex(len(m.verts) - 1)
}

func (m *Mesh) setNext(h, next HalfEdge) {
	m.hes[h].next = next
	m.hes[next].prev = h
}

// NumVertices returns the size of the vertex arena, deleted vertices included.
func (m *Mesh) NumVertices() int { return len(m.verts) }

// NumHalfEdges returns the size of the half-edge arena, deleted half-edges included.
func (m *Mesh) NumHalfEdges() int { return len(m.hes) }

// NumEdges returns the size of the edge arena, deleted edges included.
func (m *Mesh) NumEdges() int { return len(m.edeleted) }

// NumFaces returns the size of the face arena, deleted faces included.
func (m *Mesh) NumFaces() int { return len(m.faces) }

func (m *Mesh) VertexDeleted(v Vertex) bool { return m.verts[v].deleted }
func (m *Mesh) EdgeDeleted(e Edge) bool     { return m.edeleted[e] }
func (m *Mesh) FaceDeleted(f Face) bool     { return m.faces[f].deleted }

// Vertices returns the live vertices in ascending order.
func (m *Mesh) Vertices() []Vertex {
	vs := make([]Vertex, 0, len(m.verts))
	for i := range m.verts {
		if !m.verts[i].deleted {
			vs = append(vs, Vertex(i))
		}
	}
	return vs
}

// Edges returns the live edges in ascending order.
func (m *Mesh) Edges() []Edge {
	es := make([]Edge, 0, len(m.edeleted))
	for i, deleted := range m.edeleted {
		if !deleted {
			es = append(es, Edge(i))
		}
	}
	return es
}

// Faces returns the live faces in ascending order.
func (m *Mesh) Faces() []Face {
	fs := make([]Face, 0, len(m.faces))
	for i := range m.faces {
		if !m.faces[i].deleted {
			fs = append(fs, Face(i))
		}
	}
	return fs
}

// Point returns the position of v.
func (m *Mesh) Point(v Vertex) r3.Vec { return m.points[v] }

// SetPoint moves v to p.
func (m *Mesh) SetPoint(v Vertex, p r3.Vec) { m.points[v] = p }

func (m *Mesh) To(h HalfEdge) Vertex    { return m.hes[h].to }
func (m *Mesh) From(h HalfEdge) Vertex  { return m.hes[h^1].to }
func (m *Mesh) Next(h HalfEdge) HalfEdge { return m.hes[h].next }
func (m *Mesh) Prev(h HalfEdge) HalfEdge { return m.hes[h].prev }
func (m *Mesh) Face(h HalfEdge) Face    { return m.hes[h].face }

// IsBoundary returns true if h has no incident face.
func (m *Mesh) IsBoundary(h HalfEdge) bool { return m.hes[h].face == NoFace }

// IsBoundaryEdge returns true if e borders exactly one face.
func (m *Mesh) IsBoundaryEdge(e Edge) bool {
	return m.IsBoundary(e.HalfEdge(0)) || m.IsBoundary(e.HalfEdge(1))
}

// IsBoundaryVertex returns true if v lies on a boundary loop. Isolated
// vertices are reported as boundary vertices.
func (m *Mesh) IsBoundaryVertex(v Vertex) bool {
	h := m.verts[v].out
	return h == NoHalfEdge || m.IsBoundary(h)
}

// VertexHalfEdge returns an outgoing half-edge of v, the boundary one if
// v is on the boundary. It returns NoHalfEdge for isolated vertices.
func (m *Mesh) VertexHalfEdge(v Vertex) HalfEdge { return m.verts[v].out }

// FaceHalfEdge returns one of the three half-edges of f.
func (m *Mesh) FaceHalfEdge(f Face) HalfEdge { return m.faces[f].he }

// EdgeVertices returns the endpoints of e.
func (m *Mesh) EdgeVertices(e Edge) (Vertex, Vertex) {
	h := e.HalfEdge(0)
	return m.From(h), m.To(h)
}

// FaceVertices returns the corners of f in counter-clockwise order.
func (m *Mesh) FaceVertices(f Face) [3]Vertex {
	h := m.faces[f].he
	n := m.Next(h)
	return [3]Vertex{m.From(h), m.To(h), m.To(n)}
}

// Triangle returns the corner positions of f.
func (m *Mesh) Triangle(f Face) [3]r3.Vec {
	vs := m.FaceVertices(f)
	return [3]r3.Vec{m.points[vs[0]], m.points[vs[1]], m.points[vs[2]]}
}

// Outgoing appends the half-edges leaving v to dst in rotational order,
// starting with VertexHalfEdge(v).
func (m *Mesh) Outgoing(v Vertex, dst []HalfEdge) []HalfEdge {
	h0 := m.verts[v].out
	if h0 == NoHalfEdge {
		return dst
	}
	h := h0
	for {
		dst = append(dst, h)
		h = m.Next(h.Opposite())
		if h == h0 {
			return dst
		}
	}
}

// Neighbors appends the vertices adjacent to v to dst.
func (m *Mesh) Neighbors(v Vertex, dst []Vertex) []Vertex {
	h0 := m.verts[v].out
	if h0 == NoHalfEdge {
		return dst
	}
	h := h0
	for {
		dst = append(dst, m.To(h))
		h = m.Next(h.Opposite())
		if h == h0 {
			return dst
		}
	}
}

// IncidentFaces appends the faces around v to dst.
func (m *Mesh) IncidentFaces(v Vertex, dst []Face) []Face {
	h0 := m.verts[v].out
	if h0 == NoHalfEdge {
		return dst
	}
	h := h0
	for {
		if f := m.Face(h); f != NoFace {
			dst = append(dst, f)
		}
		h = m.Next(h.Opposite())
		if h == h0 {
			return dst
		}
	}
}

// Valence returns the number of edges incident to v.
func (m *Mesh) Valence(v Vertex) int {
	h0 := m.verts[v].out
	if h0 == NoHalfEdge {
		return 0
	}
	n := 0
	h := h0
	for {
		n++
		h = m.Next(h.Opposite())
		if h == h0 {
			return n
		}
	}
}

// FindHalfEdge returns the half-edge going from a to b or NoHalfEdge.
func (m *Mesh) FindHalfEdge(a, b Vertex) HalfEdge {
	h0 := m.verts[a].out
	if h0 == NoHalfEdge {
		return NoHalfEdge
	}
	h := h0
	for {
		if m.To(h) == b {
			return h
		}
		h = m.Next(h.Opposite())
		if h == h0 {
			return NoHalfEdge
		}
	}
}

// adjustOutgoing makes a boundary half-edge the outgoing half-edge of v
// if v lies on the boundary.
func (m *Mesh) adjustOutgoing(v Vertex) {
	h0 := m.verts[v].out
	if h0 == NoHalfEdge {
		return
	}
	h := h0
	for {
		if m.IsBoundary(h) {
			m.verts[v].out = h
			return
		}
		h = m.Next(h.Opposite())
		if h == h0 {
			return
		}
	}
}

// Indexed returns a compact copy of the mesh as points and triangles.
// Deleted and isolated vertices are dropped.
func (m *Mesh) Indexed() (points []r3.Vec, triangles [][3]int) {
	remap := make([]int, len(m.verts))
	for i := range remap {
		remap[i] = -1
	}
	for f := range m.faces {
		if m.faces[f].deleted {
			continue
		}
		var tri [3]int
		for j, v := range m.FaceVertices(Face(f)) {
			if remap[v] < 0 {
				remap[v] = len(points)
				points = append(points, m.points[v])
			}
			tri[j] = remap[v]
		}
		triangles = append(triangles, tri)
	}
	return points, triangles
}

// Clone returns a deep copy of m. Handles are preserved.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		points:   append([]r3.Vec(nil), m.points...),
		verts:    append([]vertex(nil), m.verts...),
		hes:      append([]halfedge(nil), m.hes...),
		edeleted: append([]bool(nil), m.edeleted...),
		faces:    append([]face(nil), m.faces...),
	}
}
