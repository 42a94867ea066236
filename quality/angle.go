package quality

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/mesh"
)

// MinAngle returns the smallest interior angle of the live faces of m in
// degrees, or 0 if m has no faces.
func MinAngle(m *mesh.Mesh) float64 {
	minAngle := math.Inf(1)
	for _, f := range m.Faces() {
		t := m.Triangle(f)
		for i := range t {
			u := r3.Sub(t[(i+1)%3], t[i])
			w := r3.Sub(t[(i+2)%3], t[i])
			if r3.Norm2(u) == 0 || r3.Norm2(w) == 0 {
				return 0
			}
			c := math.Max(-1, math.Min(1, r3.Cos(u, w)))
			minAngle = math.Min(minAngle, math.Acos(c))
		}
	}
	if math.IsInf(minAngle, 1) {
		return 0
	}
	return minAngle * 180 / math.Pi
}
