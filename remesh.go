// Package remesh implements isotropic remeshing of triangle meshes.
//
// Given a set of faces and a target edge length L, IsotropicRemeshing
// alternates edge splits (edges longer than 4/3·L), edge collapses
// (edges shorter than 4/5·L), valence equalizing flips, tangential
// relaxation and projection back onto the input surface until the
// selected region has near uniform edge lengths and near regular
// valences.
//
// The borders of the selected region, edges between patches and edges
// flagged in Parms.EdgeConstrained are constraints: they are never
// flipped, and with Parms.ProtectConstraints set they are never split or
// collapsed either.
package remesh

import (
	"fmt"
	"math"
	"time"

	"github.com/soypat/remesh/mesh"
)

// Split and collapse thresholds relative to the target edge length.
const (
	lowRatio  = 4. / 5.
	highRatio = 4. / 3.
)

// IsotropicRemeshing remeshes faces of m towards edges of length target.
// Each of p.NumberOfIterations iterations, one if zero, splits long
// edges, collapses short edges, equalizes valences, relaxes vertices and
// projects them back onto the input surface, in that order. A target of
// zero skips the split and collapse stages.
//
// m, p.EdgeConstrained and p.FacePatch are updated in place. With
// p.ProtectConstraints set, ErrConstraintTooLong is returned before any
// change if a constrained edge is longer than 4/3·target.
func IsotropicRemeshing(faces []mesh.Face, target float64, m *mesh.Mesh, p Parms) error {
	if m == nil {
		return errNilMesh
	}
	if target < 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return fmt.Errorf("invalid target edge length %g", target)
	}
	if len(faces) == 0 {
		return nil
	}
	r, err := NewRemesher(m, faces, p)
	if err != nil {
		return err
	}
	low, high := lowRatio*target, highRatio*target
	if p.ProtectConstraints && target > 0 {
		if err := r.checkConstraintLengths(high); err != nil {
			return err
		}
	}
	iterations := p.NumberOfIterations
	if iterations == 0 {
		iterations = 1
	}
	for it := 0; it < iterations; it++ {
		r.iteration = it
		if target > 0 {
			r.SplitLongEdges(high)
			r.CollapseShortEdges(low, high, p.CollapseConstraints)
		}
		r.EqualizeValences()
		r.TangentialRelaxation(p.RelaxConstraints, p.NumberOfRelaxationSteps)
		if p.DoProject {
			r.ProjectToSurface(p.Projection)
		}
	}
	return nil
}

// SplitLongEdges splits the given edges of m, and the halves they
// produce, until none is longer than maxLength. The whole mesh is
// considered selected, constraints are not protected and the flags of
// p.EdgeConstrained are carried over to the halves of split edges. Only
// p.Traits, p.Points, p.EdgeConstrained, p.FacePatch and p.Observer are used.
func SplitLongEdges(edges []mesh.Edge, maxLength float64, m *mesh.Mesh, p Parms) error {
	if m == nil {
		return errNilMesh
	}
	if !(maxLength > 0) || math.IsInf(maxLength, 0) {
		return fmt.Errorf("invalid maximum edge length %g", maxLength)
	}
	if len(edges) == 0 {
		return nil
	}
	for _, e := range edges {
		if e < 0 || int(e) >= m.NumEdges() {
			return fmt.Errorf("edge %d out of range [0,%d)", e, m.NumEdges())
		}
		if m.EdgeDeleted(e) {
			return fmt.Errorf("edge %d is deleted", e)
		}
	}
	r, err := NewRemesher(m, m.Faces(), Parms{
		Traits:          p.Traits,
		Points:          p.Points,
		EdgeConstrained: p.EdgeConstrained,
		FacePatch:       p.FacePatch,
		Observer:        p.Observer,
	})
	if err != nil {
		return err
	}
	start := time.Now()
	n, skipped := r.splitLongEdges(edges, maxLength*maxLength, false)
	r.report(StageSplit, n, skipped, start)
	return nil
}
