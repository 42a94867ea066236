// Package quality measures how close a triangle mesh is to an isotropic
// one: edge length statistics and valence regularity.
package quality

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/soypat/remesh/mesh"
)

// Report summarizes the shape of a mesh.
type Report struct {
	Vertices, Edges, Faces int
	// Border is the number of border edges.
	Border int

	MinLength, MaxLength     float64
	MeanLength, StdDevLength float64

	// ValenceDeviation is the mean squared difference between the valence
	// of interior vertices and 6.
	ValenceDeviation float64
	// Irregular is the number of interior vertices whose valence is not 6.
	Irregular int
	// MinAngle is the smallest triangle angle in degrees.
	MinAngle float64
}

// Measure computes the Report of the live elements of m.
func Measure(m *mesh.Mesh) Report {
	r := Report{
		Vertices: len(m.Vertices()),
		Faces:    len(m.Faces()),
	}
	lengths := EdgeLengths(m)
	r.Edges = len(lengths)
	for _, e := range m.Edges() {
		if m.IsBoundaryEdge(e) {
			r.Border++
		}
	}
	if len(lengths) > 0 {
		r.MinLength = floats.Min(lengths)
		r.MaxLength = floats.Max(lengths)
		r.MeanLength, r.StdDevLength = stat.MeanStdDev(lengths, nil)
	}
	r.ValenceDeviation, r.Irregular = valences(m)
	r.MinAngle = MinAngle(m)
	return r
}

func (r Report) String() string {
	return fmt.Sprintf("%d vertices, %d edges (%d border), %d faces; edge length min=%.4g max=%.4g mean=%.4g sd=%.4g; valence deviation=%.3g (%d irregular); min angle=%.2f°",
		r.Vertices, r.Edges, r.Border, r.Faces, r.MinLength, r.MaxLength, r.MeanLength, r.StdDevLength, r.ValenceDeviation, r.Irregular, r.MinAngle)
}

// EdgeLengths returns the length of every live edge of m.
func EdgeLengths(m *mesh.Mesh) []float64 {
	edges := m.Edges()
	lengths := make([]float64, len(edges))
	for i, e := range edges {
		a, b := m.EdgeVertices(e)
		lengths[i] = r3.Norm(r3.Sub(m.Point(a), m.Point(b)))
	}
	return lengths
}

// FractionInRange returns the fraction of values in [lo, hi].
func FractionInRange(values []float64, lo, hi float64) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if v >= lo && v <= hi {
			n++
		}
	}
	return float64(n) / float64(len(values))
}

// ValenceDeviation returns the mean squared difference between the
// valence of interior vertices of m and 6. A mesh without interior
// vertices has zero deviation.
func ValenceDeviation(m *mesh.Mesh) float64 {
	dev, _ := valences(m)
	return dev
}

func valences(m *mesh.Mesh) (deviation float64, irregular int) {
	var devs []float64
	for _, v := range m.Vertices() {
		if m.IsBoundaryVertex(v) {
			continue
		}
		d := float64(m.Valence(v) - 6)
		if d != 0 {
			irregular++
		}
		devs = append(devs, d*d)
	}
	if len(devs) == 0 {
		return 0, 0
	}
	return stat.Mean(devs, nil), irregular
}
