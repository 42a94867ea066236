package remesh

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/mesh"
	"github.com/soypat/remesh/spatial"
)

// Remesher holds the working state of one remeshing call over a set of
// selected faces of a mesh. It exposes the individual stages so callers
// can compose their own pipeline; IsotropicRemeshing runs them in the
// usual order.
//
// A Remesher must be created with NewRemesher. It is not safe for
// concurrent use and the mesh must not be edited by other means while
// it is in use.
type Remesher struct {
	m       *mesh.Mesh
	traits  Traits
	points  PointMap
	fimap   FaceIndexMap
	ecmap   EdgeConstraintMap   // may be nil.
	vcmap   VertexConstraintMap // may be nil.
	patches PatchMap
	protect bool

	observer  Observer
	iteration int

	selected []bool // indexed by face.
	moved    []bool // indexed by vertex.
	// refs holds the original surface of each patch, nil when projection
	// is done by a user function or disabled.
	refs map[int]*spatial.BIH
	// polylines holds the original constrained segments, grouped in
	// chains joined only at locked vertices.
	polylines [][][2]r3.Vec
}

// NewRemesher prepares remeshing of faces of m. It classifies edges and
// vertices, computes the default patches when p.FacePatch is nil and
// builds the reference index for projection when p.Projection is nil and
// p.DoProject is set. The mesh is not modified.
func NewRemesher(m *mesh.Mesh, faces []mesh.Face, p Parms) (*Remesher, error) {
	if m == nil {
		return nil, errNilMesh
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	r := &Remesher{
		m:        m,
		traits:   p.Traits,
		points:   p.Points,
		fimap:    p.FaceIndex,
		ecmap:    p.EdgeConstrained,
		vcmap:    p.VertexConstrained,
		patches:  p.FacePatch,
		protect:  p.ProtectConstraints,
		observer: p.Observer,
		selected: make([]bool, m.NumFaces()),
		moved:    make([]bool, m.NumVertices()),
	}
	if r.traits == nil {
		r.traits = R3Traits{}
	}
	if r.points == nil {
		r.points = m
	}
	if r.fimap == nil {
		r.fimap = identityIndex{}
	}
	for _, f := range faces {
		if f < 0 || int(f) >= m.NumFaces() {
			return nil, fmt.Errorf("face %d out of range [0,%d)", f, m.NumFaces())
		}
		if m.FaceDeleted(f) {
			return nil, fmt.Errorf("face %d is deleted", f)
		}
		r.selected[f] = true
	}
	if r.patches == nil {
		r.patches = r.connectedPatches(faces)
	}
	r.buildPolylines()
	if p.Projection == nil && p.DoProject {
		r.buildReference(faces)
	}
	return r, nil
}

var (
	// ErrConstraintTooLong is returned when constraints are protected and a
	// constrained edge is longer than 4/3 of the target edge length, which
	// would keep the edge from ever reaching the target length.
	ErrConstraintTooLong = errors.New("constrained edge too long to protect")

	errNilMesh = errors.New("nil mesh")
)

func (p *Parms) validate() error {
	switch {
	case p.NumberOfIterations < 0:
		return fmt.Errorf("negative number of iterations %d", p.NumberOfIterations)
	case p.NumberOfRelaxationSteps < 0:
		return fmt.Errorf("negative number of relaxation steps %d", p.NumberOfRelaxationSteps)
	}
	return nil
}

func (r *Remesher) mustInit() {
	if r == nil || r.m == nil {
		panic("remesh: Remesher not created with NewRemesher")
	}
}

// Mesh returns the mesh being remeshed.
func (r *Remesher) Mesh() *mesh.Mesh { return r.m }

// IsSelected reports whether f belongs to the remeshed faces. Faces
// created by splits inherit the selection of the face they were cut from.
func (r *Remesher) IsSelected(f mesh.Face) bool {
	return f != mesh.NoFace && int(f) < len(r.selected) && r.selected[f]
}

// SelectedFaces returns the live selected faces.
func (r *Remesher) SelectedFaces() []mesh.Face {
	var faces []mesh.Face
	for _, f := range r.m.Faces() {
		if r.IsSelected(f) {
			faces = append(faces, f)
		}
	}
	return faces
}

func (r *Remesher) setSelected(f mesh.Face, sel bool) {
	for int(f) >= len(r.selected) {
		r.selected = append(r.selected, false)
	}
	r.selected[f] = sel
}

func (r *Remesher) markMoved(v mesh.Vertex) {
	for int(v) >= len(r.moved) {
		r.moved = append(r.moved, false)
	}
	r.moved[v] = true
}

func (r *Remesher) isMoved(v mesh.Vertex) bool {
	return int(v) < len(r.moved) && r.moved[v]
}

func (r *Remesher) point(v mesh.Vertex) r3.Vec { return r.points.Point(v) }

func (r *Remesher) sqLength(e mesh.Edge) float64 {
	a, b := r.m.EdgeVertices(e)
	return r.traits.SquaredDistance(r.point(a), r.point(b))
}

func (r *Remesher) report(stage Stage, edits, skipped int, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.StageDone(StageReport{
		Stage:     stage,
		Iteration: r.iteration,
		Edits:     edits,
		Skipped:   skipped,
		Elapsed:   time.Since(start),
	})
}

// connectedPatches numbers the connected components of the selected faces
// separated by explicitly constrained edges, visiting faces in ascending
// face index order.
func (r *Remesher) connectedPatches(faces []mesh.Face) PatchIDs {
	order := append([]mesh.Face(nil), faces...)
	sort.Slice(order, func(i, j int) bool {
		return r.fimap.FaceIndex(order[i]) < r.fimap.FaceIndex(order[j])
	})
	ids := make(PatchIDs, len(faces))
	next := 0
	var stack []mesh.Face
	for _, seed := range order {
		if _, done := ids[seed]; done {
			continue
		}
		ids[seed] = next
		stack = append(stack[:0], seed)
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			h0 := r.m.FaceHalfEdge(f)
			h := h0
			for {
				g := r.m.Face(h.Opposite())
				if r.IsSelected(g) && (r.ecmap == nil || !r.ecmap.IsConstrained(h.Edge())) {
					if _, done := ids[g]; !done {
						ids[g] = next
						stack = append(stack, g)
					}
				}
				h = r.m.Next(h)
				if h == h0 {
					break
				}
			}
		}
		next++
	}
	return ids
}

func (r *Remesher) buildReference(faces []mesh.Face) {
	byPatch := make(map[int][][3]r3.Vec)
	for _, f := range faces {
		vs := r.m.FaceVertices(f)
		id := r.patches.Patch(f)
		byPatch[id] = append(byPatch[id], [3]r3.Vec{r.point(vs[0]), r.point(vs[1]), r.point(vs[2])})
	}
	r.refs = make(map[int]*spatial.BIH, len(byPatch))
	for id, tris := range byPatch {
		r.refs[id] = spatial.NewBIH(tris)
	}
}

// buildPolylines records the constrained segments of the selection. Two
// segments sharing a polyline vertex belong to the same chain.
func (r *Remesher) buildPolylines() {
	var segs []mesh.Edge
	for _, e := range r.m.Edges() {
		if c := r.edgeClass(e); c == edgePatchBorder || c == edgeMeshBorder {
			segs = append(segs, e)
		}
	}
	if len(segs) == 0 {
		return
	}
	g := simple.NewUndirectedGraph()
	seen := make(map[mesh.Vertex]int) // first segment at each polyline vertex.
	for i, e := range segs {
		g.AddNode(simple.Node(i))
		a, b := r.m.EdgeVertices(e)
		for _, v := range [2]mesh.Vertex{a, b} {
			if r.classify(v).kind != vertexPolyline {
				continue
			}
			if j, ok := seen[v]; ok {
				g.SetEdge(simple.Edge{F: simple.Node(j), T: simple.Node(i)})
			} else {
				seen[v] = i
			}
		}
	}
	for _, nodes := range topo.ConnectedComponents(g) {
		chain := make([][2]r3.Vec, len(nodes))
		for k, n := range nodes {
			a, b := r.m.EdgeVertices(segs[n.ID()])
			chain[k] = [2]r3.Vec{r.point(a), r.point(b)}
		}
		r.polylines = append(r.polylines, chain)
	}
}

// checkConstraintLengths returns ErrConstraintTooLong if a constrained
// edge is longer than maxLength.
func (r *Remesher) checkConstraintLengths(maxLength float64) error {
	sqMax := maxLength * maxLength
	for _, e := range r.m.Edges() {
		if !r.isConstrained(e) || r.edgeClass(e) == edgeOutside {
			continue
		}
		if l2 := r.sqLength(e); l2 > sqMax {
			a, b := r.m.EdgeVertices(e)
			return fmt.Errorf("%w: edge %d (%d-%d) has length %g, maximum %g", ErrConstraintTooLong, e, a, b, math.Sqrt(l2), maxLength)
		}
	}
	return nil
}
