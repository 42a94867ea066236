package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
)

// SDF3 is a signed distance field. Evaluate is negative inside the surface.
type SDF3 interface {
	Evaluate(p r3.Vec) float64
	Bounds() r3.Box
}

// Normal3 returns the normal of an SDF3 at a point (doesn't need to be on the surface).
// Computed by sampling it several times inside a box of side 2*eps centered on p.
func Normal3(s SDF3, p r3.Vec, eps float64) r3.Vec {
	return r3.Unit(r3.Vec{
		X: s.Evaluate(r3.Add(p, r3.Vec{X: eps})) - s.Evaluate(r3.Add(p, r3.Vec{X: -eps})),
		Y: s.Evaluate(r3.Add(p, r3.Vec{Y: eps})) - s.Evaluate(r3.Add(p, r3.Vec{Y: -eps})),
		Z: s.Evaluate(r3.Add(p, r3.Vec{Z: eps})) - s.Evaluate(r3.Add(p, r3.Vec{Z: -eps})),
	})
}

// SDFProjector moves points onto the zero level set of an SDF3 by stepping
// along the field gradient.
type SDFProjector struct {
	SDF SDF3
	// Eps is the gradient sampling step. Zero picks a step relative to
	// the size of the SDF bounds.
	Eps float64
	// MaxSteps bounds the number of gradient steps. Zero means 8.
	MaxSteps int
}

// Project returns the point of the SDF surface reached from p.
// Points already within Eps/100 of the surface are returned unchanged.
func (sp SDFProjector) Project(p r3.Vec) r3.Vec {
	eps := sp.Eps
	if eps <= 0 {
		eps = 1e-4 * d3.Max(d3.Box(sp.SDF.Bounds()).Size())
		if eps <= 0 || math.IsInf(eps, 0) || math.IsNaN(eps) {
			eps = 1e-6
		}
	}
	steps := sp.MaxSteps
	if steps <= 0 {
		steps = 8
	}
	tol := eps / 100
	for i := 0; i < steps; i++ {
		d := sp.SDF.Evaluate(p)
		if math.Abs(d) <= tol {
			break
		}
		n := Normal3(sp.SDF, p, eps)
		if math.IsNaN(n.X) {
			// flat field, no direction to move in.
			break
		}
		p = r3.Sub(p, r3.Scale(d, n))
	}
	return p
}
