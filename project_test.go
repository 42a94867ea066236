package remesh

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/mesh"
)

// teeGrid returns an 8 by 8 unit grid with the row y=4 and the upper half
// of the column x=4 flagged, meeting at (4,4).
func teeGrid(t *testing.T) (*mesh.Mesh, EdgeSet) {
	const n = 8
	var points []r3.Vec
	var tris [][3]int
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			points = append(points, r3.Vec{X: float64(i), Y: float64(j)})
		}
	}
	idx := func(i, j int) int { return j*(n+1) + i }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a, b, c, d := idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)
			tris = append(tris, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	m, err := mesh.New(points, tris)
	require.NoError(t, err)
	ecm := EdgeSet{}
	flag := func(a, b int) {
		h := m.FindHalfEdge(mesh.Vertex(a), mesh.Vertex(b))
		require.NotEqual(t, mesh.NoHalfEdge, h)
		ecm.SetConstrained(h.Edge(), true)
	}
	for i := 0; i < n; i++ {
		flag(idx(i, 4), idx(i+1, 4))
	}
	for j := 4; j < n; j++ {
		flag(idx(4, j), idx(4, j+1))
	}
	return m, ecm
}

func TestPolylineChains(t *testing.T) {
	m, ecm := teeGrid(t)
	p := DefaultParms()
	p.EdgeConstrained = ecm
	r, err := NewRemesher(m, m.Faces(), p)
	require.NoError(t, err)
	// the tee gives three chains and the square border, cut at its
	// corners and where the tee meets it, gives seven.
	require.Len(t, r.polylines, 10)
	segments := 0
	for _, chain := range r.polylines {
		segments += len(chain)
	}
	require.Equal(t, 8+4+4*8, segments)

	// a vertex of the right half of the row that drifted towards the
	// column stays on the row.
	got := r.closestOnPolyline(r3.Vec{X: 4.3, Y: 4.6}, r3.Vec{X: 4.5, Y: 4})
	require.InDelta(t, 4.3, got.X, 1e-12)
	require.InDelta(t, 4, got.Y, 1e-12)
	// the same point looked up from the column lands on the column.
	got = r.closestOnPolyline(r3.Vec{X: 4.3, Y: 4.6}, r3.Vec{X: 4, Y: 4.5})
	require.InDelta(t, 4, got.X, 1e-12)
	require.InDelta(t, 4.6, got.Y, 1e-12)
}
