package render

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/mesh"
)

var _ kdtree.Comparable = weldPoint{}

// ToMesh builds a half-edge mesh from a triangle soup, merging vertices
// closer than tol to each other. If tol is zero it is inferred from the
// shortest triangle side of the model. Triangles that collapse to an edge
// or a point after merging are dropped.
func ToMesh(model []Triangle3, tol float64) (*mesh.Mesh, error) {
	if len(model) == 0 {
		return nil, errors.New("empty triangle slice")
	}
	if tol < 0 || math.IsNaN(tol) {
		return nil, fmt.Errorf("invalid vertex tolerance %g", tol)
	}
	minSide2, maxSide2 := math.Inf(1), 0.
	for _, t := range model {
		for j := range t {
			side2 := r3.Norm2(r3.Sub(t[(j+1)%3], t[j]))
			if side2 > 0 {
				minSide2 = math.Min(minSide2, side2)
			}
			maxSide2 = math.Max(maxSide2, side2)
		}
	}
	if math.IsInf(minSide2, 1) {
		return nil, errors.New("all triangles are degenerate")
	}
	suggested := math.Sqrt(minSide2) / 256
	if tol > math.Sqrt(maxSide2)/2 {
		return nil, fmt.Errorf("vertex tolerance is too large to generate appropiate mesh, suggested tolerance: %g", suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	tol2 := tol * tol
	var (
		tree   kdtree.Tree
		points []r3.Vec
	)
	tris := make([][3]int, 0, len(model))
	for _, t := range model {
		var tri [3]int
		for j, v := range t {
			got, d2 := tree.Nearest(weldPoint{Vec: v})
			if got != nil && d2 <= tol2 {
				tri[j] = got.(weldPoint).idx
				continue
			}
			tri[j] = len(points)
			tree.Insert(weldPoint{Vec: v, idx: len(points)}, false)
			points = append(points, v)
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
			continue
		}
		tris = append(tris, tri)
	}
	return mesh.New(points, tris)
}

// FromMesh returns the live faces of m as a triangle soup.
func FromMesh(m *mesh.Mesh) []Triangle3 {
	faces := m.Faces()
	model := make([]Triangle3, len(faces))
	for i, f := range faces {
		model[i] = m.Triangle(f)
	}
	return model
}

// weldPoint is a model vertex stored in the welding tree.
type weldPoint struct {
	r3.Vec
	idx int
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
func (a weldPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	q := b.(weldPoint)
	switch d {
	case 0:
		return a.X - q.X
	case 1:
		return a.Y - q.Y
	case 2:
		return a.Z - q.Z
	}
	panic("illegal dimension")
}

// Dims returns the number of dimensions described in the Comparable.
func (a weldPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a weldPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.Vec, b.(weldPoint).Vec))
}
