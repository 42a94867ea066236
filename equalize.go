package remesh

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
)

// equalizePasses is the number of sweeps over the edges made by
// EqualizeValences. The second sweep catches flips enabled by the first.
const equalizePasses = 2

// EqualizeValences flips unconstrained edges of the selected faces when
// the flip strictly reduces the squared deviation of the four vertices
// involved from their ideal valence, 6 inside and 4 on borders and
// constraints. Flips creating a degenerate triangle or folding the
// surface are skipped. It returns the number of flips.
func (r *Remesher) EqualizeValences() int {
	r.mustInit()
	start := time.Now()
	var flips, skipped int
	for pass := 0; pass < equalizePasses; pass++ {
		for _, e := range r.m.Edges() {
			if r.m.EdgeDeleted(e) || r.edgeClass(e) != edgePatch {
				continue
			}
			h := e.HalfEdge(0)
			o := h.Opposite()
			a, b := r.m.From(h), r.m.To(h)
			c, d := r.m.To(r.m.Next(h)), r.m.To(r.m.Next(o))
			va, vb := r.m.Valence(a), r.m.Valence(b)
			vc, vd := r.m.Valence(c), r.m.Valence(d)
			ta, tb := r.targetValence(a), r.targetValence(b)
			tc, td := r.targetValence(c), r.targetValence(d)
			before := sq(va-ta) + sq(vb-tb) + sq(vc-tc) + sq(vd-td)
			after := sq(va-1-ta) + sq(vb-1-tb) + sq(vc+1-tc) + sq(vd+1-td)
			if after >= before {
				continue
			}
			if !r.m.IsFlipOK(e) || !r.flipKeepsShape(a, b, c, d) {
				skipped++
				continue
			}
			r.m.Flip(e)
			flips++
		}
	}
	r.report(StageEqualize, flips, skipped, start)
	return flips
}

func sq(x int) int { return x * x }

// flipKeepsShape checks the triangles abc and bad replaced by cad and dbc:
// the new triangles must not be degenerate and must face the same side as
// the old pair.
func (r *Remesher) flipKeepsShape(a, b, c, d mesh.Vertex) bool {
	pa, pb, pc, pd := r.point(a), r.point(b), r.point(c), r.point(d)
	n := r3.Add(r.traits.TriangleNormal(pa, pb, pc), r.traits.TriangleNormal(pb, pa, pd))
	for _, t := range [2]d3.Triangle{{pc, pa, pd}, {pd, pb, pc}} {
		if t.Degenerate(degenerateTol) || r3.Dot(n, r.traits.TriangleNormal(t[0], t[1], t[2])) <= 0 {
			return false
		}
	}
	return true
}
