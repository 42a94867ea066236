package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a triangle given by its three corners in counter-clockwise order.
type Triangle [3]r3.Vec

// AreaNormal returns the triangle normal scaled by twice the triangle area.
func (t Triangle) AreaNormal() r3.Vec {
	return r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
}

// Normal returns the unit normal of the triangle.
func (t Triangle) Normal() r3.Vec {
	return r3.Unit(t.AreaNormal())
}

// Centroid returns the mean of the triangle's corners.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(t[0], t[1]), t[2]))
}

// LongestEdge2 returns the squared length of the longest side.
func (t Triangle) LongestEdge2() float64 {
	return math.Max(Dist2(t[0], t[1]), math.Max(Dist2(t[1], t[2]), Dist2(t[2], t[0])))
}

// Degenerate returns true if the triangle's area is negligible
// with respect to the square of its longest side.
func (t Triangle) Degenerate(tol float64) bool {
	l2 := t.LongestEdge2()
	if l2 == 0 {
		return true
	}
	return r3.Norm2(t.AreaNormal()) <= tol*tol*l2*l2
}

// ClosestOnSegment returns the point on the segment [a,b] closest to p.
func ClosestOnSegment(p, a, b r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return a
	}
	t := r3.Dot(r3.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	return r3.Add(a, r3.Scale(t, ab))
}
