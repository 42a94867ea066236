// Package render reads and writes triangle models and draws previews of
// triangle meshes.
package render

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
)

// Triangle3 is a triangle of a model as stored in STL files: three
// counter-clockwise vertices seen from outside.
type Triangle3 [3]r3.Vec

// Normal returns the unit normal of the triangle.
func (t Triangle3) Normal() r3.Vec { return d3.Triangle(t).Normal() }

// Degenerate returns true if two vertices of the triangle are within tol
// of each other in every coordinate.
func (t Triangle3) Degenerate(tol float64) bool {
	return d3.EqualWithin(t[0], t[1], tol) || d3.EqualWithin(t[1], t[2], tol) || d3.EqualWithin(t[2], t[0], tol)
}

// Bounds returns the bounding box of a model.
func Bounds(model []Triangle3) r3.Box {
	bb := d3.EmptyBox()
	for _, t := range model {
		bb = bb.Include(t[0]).Include(t[1]).Include(t[2])
	}
	return r3.Box(bb)
}
