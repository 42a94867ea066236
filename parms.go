package remesh

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
	"github.com/soypat/remesh/spatial"
)

// Traits is the geometric kernel used for all point and length arithmetic.
// Implementations are expected to use inexact floating point arithmetic.
type Traits interface {
	Midpoint(a, b r3.Vec) r3.Vec
	SquaredDistance(a, b r3.Vec) float64
	// TriangleNormal returns the normal of the counter-clockwise triangle
	// abc scaled by twice its area.
	TriangleNormal(a, b, c r3.Vec) r3.Vec
}

// R3Traits implements Traits over gonum's r3 vectors.
type R3Traits struct{}

func (R3Traits) Midpoint(a, b r3.Vec) r3.Vec          { return d3.Midpoint(a, b) }
func (R3Traits) SquaredDistance(a, b r3.Vec) float64  { return d3.Dist2(a, b) }
func (R3Traits) TriangleNormal(a, b, c r3.Vec) r3.Vec { return d3.Triangle{a, b, c}.AreaNormal() }

// PointMap reads and writes vertex positions. *mesh.Mesh implements it.
// Vertices created by splits are written through SetPoint.
type PointMap interface {
	Point(v mesh.Vertex) r3.Vec
	SetPoint(v mesh.Vertex, p r3.Vec)
}

// FaceIndexMap gives each face a stable integer id.
type FaceIndexMap interface {
	FaceIndex(f mesh.Face) int
}

// EdgeConstraintMap flags constrained edges. Edges created by a split
// of a constrained edge are flagged through SetConstrained, and flags of
// edges removed by a collapse are merged into the edges that replace them.
type EdgeConstraintMap interface {
	IsConstrained(e mesh.Edge) bool
	SetConstrained(e mesh.Edge, constrained bool)
}

// VertexConstraintMap flags vertices which must never be moved or removed.
type VertexConstraintMap interface {
	IsConstrained(v mesh.Vertex) bool
}

// PatchMap assigns a patch id to faces. New faces are assigned the patch
// of the face they were cut from.
type PatchMap interface {
	Patch(f mesh.Face) int
	SetPatch(f mesh.Face, id int)
}

// ProjectionFunc returns the position a vertex is moved to by the
// projection stage.
type ProjectionFunc func(v mesh.Vertex) r3.Vec

// SDFProjection returns a ProjectionFunc moving vertices read from points
// onto the zero level set of an implicit surface.
func SDFProjection(points PointMap, sp spatial.SDFProjector) ProjectionFunc {
	return func(v mesh.Vertex) r3.Vec {
		return sp.Project(points.Point(v))
	}
}

// EdgeSet is an EdgeConstraintMap backed by a map.
type EdgeSet map[mesh.Edge]bool

func (s EdgeSet) IsConstrained(e mesh.Edge) bool { return s[e] }

func (s EdgeSet) SetConstrained(e mesh.Edge, constrained bool) {
	if constrained {
		s[e] = true
	} else {
		delete(s, e)
	}
}

// VertexSet is a VertexConstraintMap backed by a map.
type VertexSet map[mesh.Vertex]bool

func (s VertexSet) IsConstrained(v mesh.Vertex) bool { return s[v] }

// PatchIDs is a PatchMap backed by a map. Faces missing from the map
// belong to patch 0.
type PatchIDs map[mesh.Face]int

func (p PatchIDs) Patch(f mesh.Face) int        { return p[f] }
func (p PatchIDs) SetPatch(f mesh.Face, id int) { p[f] = id }

type identityIndex struct{}

func (identityIndex) FaceIndex(f mesh.Face) int { return int(f) }

// Parms configures a remeshing call. Start from DefaultParms: the zero
// value runs one iteration without relaxation or projection.
type Parms struct {
	// Traits is the geometric kernel. Defaults to R3Traits.
	Traits Traits
	// Points maps vertices to positions. Defaults to the mesh itself.
	Points PointMap
	// FaceIndex gives faces a stable id used to number patches.
	// Defaults to the face handle.
	FaceIndex FaceIndexMap
	// NumberOfIterations is the number of split, collapse, equalize,
	// relax and project rounds. Zero means one.
	NumberOfIterations int
	// EdgeConstrained flags constrained edges. Patch borders are always
	// constrained regardless of this map.
	EdgeConstrained EdgeConstraintMap
	// VertexConstrained flags vertices that never move.
	VertexConstrained VertexConstraintMap
	// ProtectConstraints forbids splitting and collapsing constrained edges.
	// Constrained edges must then be no longer than 4/3 of the target length.
	ProtectConstraints bool
	// CollapseConstraints allows collapsing edges flagged in EdgeConstrained
	// when ProtectConstraints is not set.
	CollapseConstraints bool
	// FacePatch assigns faces to patches and is updated as faces are created.
	// When nil, patches are the connected components of the selected faces
	// separated by constrained edges.
	FacePatch PatchMap
	// NumberOfRelaxationSteps is the number of smoothing steps per iteration.
	NumberOfRelaxationSteps int
	// RelaxConstraints lets vertices on constraint polylines slide along them.
	RelaxConstraints bool
	// DoProject enables the projection stage.
	DoProject bool
	// Projection replaces the default closest point projection onto the
	// input surface. When set, no spatial index is built.
	Projection ProjectionFunc
	// Observer is notified at the end of every stage. May be nil.
	Observer Observer
}

// DefaultParms returns the documented defaults: one iteration, one
// relaxation step, constraint collapse allowed and projection enabled.
func DefaultParms() Parms {
	return Parms{
		Traits:                  R3Traits{},
		NumberOfIterations:      1,
		CollapseConstraints:     true,
		NumberOfRelaxationSteps: 1,
		DoProject:               true,
	}
}
