package remesh_test

import (
	"bytes"
	"log"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh"
	"github.com/soypat/remesh/mesh"
	"github.com/soypat/remesh/spatial"
)

// grid returns a flat n by n cell grid of side size in the XY plane.
// Vertex (i,j) has handle j*(n+1)+i.
func grid(t *testing.T, n int, size float64) *mesh.Mesh {
	var points []r3.Vec
	var tris [][3]int
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			points = append(points, r3.Vec{X: size * float64(i) / float64(n), Y: size * float64(j) / float64(n)})
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
	return m
}

// uvSphere returns a closed unit sphere with the given number of
// latitude bands and meridians.
func uvSphere(t *testing.T, stacks, slices int) *mesh.Mesh {
	points := []r3.Vec{{Z: 1}}
	for i := 1; i < stacks; i++ {
		theta := math.Pi * float64(i) / float64(stacks)
		for j := 0; j < slices; j++ {
			phi := 2 * math.Pi * float64(j) / float64(slices)
			points = append(points, r3.Vec{
				X: math.Sin(theta) * math.Cos(phi),
				Y: math.Sin(theta) * math.Sin(phi),
				Z: math.Cos(theta),
			})
		}
	}
	points = append(points, r3.Vec{Z: -1})
	south := len(points) - 1
	ring := func(i, j int) int { return 1 + (i-1)*slices + (j % slices) }
	var tris [][3]int
	for j := 0; j < slices; j++ {
		tris = append(tris, [3]int{0, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < stacks-1; i++ {
		for j := 0; j < slices; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j), ring(i+1, j+1)
			tris = append(tris, [3]int{a, c, b}, [3]int{b, c, d})
		}
	}
	for j := 0; j < slices; j++ {
		tris = append(tris, [3]int{south, ring(stacks-1, j+1), ring(stacks-1, j)})
	}
	m, err := mesh.New(points, tris)
	require.NoError(t, err)
	return m
}

func edgeLengths(m *mesh.Mesh) []float64 {
	var lengths []float64
	for _, e := range m.Edges() {
		a, b := m.EdgeVertices(e)
		lengths = append(lengths, r3.Norm(r3.Sub(m.Point(a), m.Point(b))))
	}
	return lengths
}

func fractionIn(values []float64, lo, hi float64) float64 {
	n := 0
	for _, v := range values {
		if v >= lo && v <= hi {
			n++
		}
	}
	return float64(n) / float64(len(values))
}

// constrainRow flags the edges of row j of a grid made by grid(t, n, size).
func constrainRow(t *testing.T, m *mesh.Mesh, n, j int) remesh.EdgeSet {
	ecm := remesh.EdgeSet{}
	for i := 0; i < n; i++ {
		a := mesh.Vertex(j*(n+1) + i)
		h := m.FindHalfEdge(a, a+1)
		require.NotEqual(t, mesh.NoHalfEdge, h)
		ecm.SetConstrained(h.Edge(), true)
	}
	return ecm
}

func centroid(m *mesh.Mesh, f mesh.Face) r3.Vec {
	tri := m.Triangle(f)
	return r3.Scale(1./3, r3.Add(r3.Add(tri[0], tri[1]), tri[2]))
}

func valenceDeviation(m *mesh.Mesh) float64 {
	var sum float64
	n := 0
	for _, v := range m.Vertices() {
		if m.IsBoundaryVertex(v) {
			continue
		}
		d := float64(m.Valence(v) - 6)
		sum += d * d
		n++
	}
	return sum / float64(n)
}

func TestFlatSquare(t *testing.T) {
	m := grid(t, 1, 10)
	p := remesh.DefaultParms()
	p.NumberOfIterations = 3
	err := remesh.IsotropicRemeshing(m.Faces(), 1, m, p)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	nf := len(m.Faces())
	require.True(t, nf >= 180 && nf <= 300, "got %d faces", nf)
	lengths := edgeLengths(m)
	require.GreaterOrEqual(t, fractionIn(lengths, 0.5, 1.6), 0.95)
	require.GreaterOrEqual(t, fractionIn(lengths, 0.8, 4./3.+1e-9), 0.85)
	var mean float64
	for _, l := range lengths {
		mean += l
	}
	mean /= float64(len(lengths))
	require.InDelta(t, 1.0, mean, 0.3)

	interior, regular := 0, 0
	for _, v := range m.Vertices() {
		pt := m.Point(v)
		require.InDelta(t, 0, pt.Z, 1e-9, "vertex left the plane")
		require.True(t, pt.X >= -1e-9 && pt.X <= 10+1e-9 && pt.Y >= -1e-9 && pt.Y <= 10+1e-9, "vertex left the square: %v", pt)
		if m.IsBoundaryVertex(v) {
			continue
		}
		interior++
		if val := m.Valence(v); val >= 5 && val <= 7 {
			regular++
		}
	}
	require.Greater(t, interior, 0)
	require.GreaterOrEqual(t, float64(regular)/float64(interior), 0.8)

	// corners of the square are never removed nor moved.
	corners := map[r3.Vec]bool{{}: false, {X: 10}: false, {X: 10, Y: 10}: false, {Y: 10}: false}
	for _, v := range m.Vertices() {
		if _, ok := corners[m.Point(v)]; ok {
			corners[m.Point(v)] = true
		}
	}
	for c, found := range corners {
		require.True(t, found, "corner %v lost", c)
	}
}

func TestProtectConstraints(t *testing.T) {
	const n = 10
	m := grid(t, n, n)
	// constrain the middle row, splitting the grid into two patches.
	ecm := constrainRow(t, m, n, n/2)
	type segment struct{ a, b mesh.Vertex }
	var protected []segment
	positions := map[mesh.Vertex]r3.Vec{}
	for _, e := range m.Edges() {
		if m.IsBoundaryEdge(e) || ecm.IsConstrained(e) {
			a, b := m.EdgeVertices(e)
			protected = append(protected, segment{a, b})
			positions[a], positions[b] = m.Point(a), m.Point(b)
		}
	}
	p := remesh.DefaultParms()
	p.NumberOfIterations = 3
	p.EdgeConstrained = ecm
	p.ProtectConstraints = true
	err := remesh.IsotropicRemeshing(m.Faces(), 1, m, p)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	for _, s := range protected {
		require.NotEqual(t, mesh.NoHalfEdge, m.FindHalfEdge(s.a, s.b), "constrained edge %d-%d removed", s.a, s.b)
	}
	for v, pos := range positions {
		require.False(t, m.VertexDeleted(v))
		require.Equal(t, pos, m.Point(v), "constrained vertex %d moved", v)
	}
	require.Len(t, ecm, n, "constraint flags changed")
}

func TestConstraintTooLong(t *testing.T) {
	m := grid(t, 1, 10)
	points, tris := m.Indexed()
	p := remesh.DefaultParms()
	p.ProtectConstraints = true
	err := remesh.IsotropicRemeshing(m.Faces(), 1, m, p)
	require.ErrorIs(t, err, remesh.ErrConstraintTooLong)
	gotPoints, gotTris := m.Indexed()
	require.Equal(t, points, gotPoints)
	require.Equal(t, tris, gotTris)

	// without protection the long border is simply split.
	p.ProtectConstraints = false
	require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 1, m, p))
}

func TestZeroTarget(t *testing.T) {
	m := grid(t, 6, 6)
	nf := len(m.Faces())
	stages := map[remesh.Stage]int{}
	p := remesh.DefaultParms()
	p.NumberOfIterations = 2
	p.Observer = remesh.ObserverFunc(func(r remesh.StageReport) { stages[r.Stage]++ })
	require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 0, m, p))
	require.NoError(t, m.Validate())
	require.Zero(t, stages[remesh.StageSplit])
	require.Zero(t, stages[remesh.StageCollapse])
	require.Equal(t, 2, stages[remesh.StageEqualize])
	require.Equal(t, 2, stages[remesh.StageRelax])
	require.Equal(t, 2, stages[remesh.StageProject])
	require.Len(t, m.Faces(), nf)
}

func TestBadInput(t *testing.T) {
	m := grid(t, 2, 2)
	p := remesh.DefaultParms()
	require.Error(t, remesh.IsotropicRemeshing(m.Faces(), -1, m, p))
	require.Error(t, remesh.IsotropicRemeshing(m.Faces(), 1, nil, p))
	require.Error(t, remesh.IsotropicRemeshing([]mesh.Face{100}, 1, m, p))
	p.NumberOfIterations = -1
	require.Error(t, remesh.IsotropicRemeshing(m.Faces(), 1, m, p))

	// no faces selected is a no-op.
	points, _ := m.Indexed()
	require.NoError(t, remesh.IsotropicRemeshing(nil, 1, m, remesh.DefaultParms()))
	got, _ := m.Indexed()
	require.Equal(t, points, got)

	require.Panics(t, func() {
		var r remesh.Remesher
		r.SplitLongEdges(1)
	})
}

func TestValenceEqualizing(t *testing.T) {
	m := uvSphere(t, 6, 12)
	before := valenceDeviation(m)
	r, err := remesh.NewRemesher(m, m.Faces(), remesh.DefaultParms())
	require.NoError(t, err)
	r.EqualizeValences()
	require.NoError(t, m.Validate())
	require.LessOrEqual(t, valenceDeviation(m), before)
}

func TestSphereProjection(t *testing.T) {
	m := uvSphere(t, 8, 16)
	var original [][3]r3.Vec
	for _, f := range m.Faces() {
		original = append(original, m.Triangle(f))
	}
	ref := spatial.NewBIH(original)

	p := remesh.DefaultParms()
	p.NumberOfIterations = 2
	require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 0.3, m, p))
	require.NoError(t, m.Validate())
	for _, v := range m.Vertices() {
		require.Less(t, ref.Distance(m.Point(v)), 1e-9, "vertex %d off the input surface", v)
	}
}

type unitSphere struct{}

func (unitSphere) Evaluate(p r3.Vec) float64 { return r3.Norm(p) - 1 }
func (unitSphere) Bounds() r3.Box            { return r3.Box{Min: r3.Vec{X: -1, Y: -1, Z: -1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}} }

func TestProjectionFunc(t *testing.T) {
	m := uvSphere(t, 8, 16)
	proj := remesh.SDFProjection(m, spatial.SDFProjector{SDF: unitSphere{}})
	p := remesh.DefaultParms()
	p.NumberOfIterations = 2
	p.Projection = proj
	require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 0.3, m, p))
	require.NoError(t, m.Validate())
	for _, v := range m.Vertices() {
		require.InDelta(t, 1, r3.Norm(m.Point(v)), 1e-5)
	}

	// projecting projected points again changes nothing.
	r, err := remesh.NewRemesher(m, m.Faces(), p)
	require.NoError(t, err)
	require.Zero(t, r.ProjectToSurface(proj))
	for _, v := range m.Vertices() {
		require.InDelta(t, 0, r3.Norm(r3.Sub(proj(v), m.Point(v))), 1e-5)
	}
}

func TestStagedSplit(t *testing.T) {
	m := grid(t, 2, 8)
	r, err := remesh.NewRemesher(m, m.Faces(), remesh.DefaultParms())
	require.NoError(t, err)
	n := r.SplitLongEdges(1.5)
	require.Greater(t, n, 0)
	require.NoError(t, m.Validate())
	for _, l := range edgeLengths(m) {
		require.LessOrEqual(t, l, 1.5)
	}
	// new vertices were marked for projection.
	require.Greater(t, r.ProjectToSurface(nil), 0)
}

func TestSplitLongEdges(t *testing.T) {
	m := grid(t, 1, 10)
	var diag mesh.Edge = mesh.NoEdge
	for _, e := range m.Edges() {
		if !m.IsBoundaryEdge(e) {
			diag = e
		}
	}
	ecm := remesh.EdgeSet{diag: true}
	p := remesh.DefaultParms()
	p.EdgeConstrained = ecm
	require.NoError(t, remesh.SplitLongEdges([]mesh.Edge{diag}, 2, m, p))
	require.NoError(t, m.Validate())
	// 10*sqrt(2) halves three times to 1.77.
	require.Len(t, ecm, 8)
	for e := range ecm {
		a, b := m.EdgeVertices(e)
		require.InDelta(t, 10*math.Sqrt2/8, r3.Norm(r3.Sub(m.Point(a), m.Point(b))), 1e-9)
	}
	// borders were not asked for and keep their length.
	for _, e := range m.Edges() {
		if m.IsBoundaryEdge(e) {
			a, b := m.EdgeVertices(e)
			require.InDelta(t, 10, r3.Norm(r3.Sub(m.Point(a), m.Point(b))), 1e-9)
		}
	}
	require.Error(t, remesh.SplitLongEdges([]mesh.Edge{diag}, 0, m, p))
}

func TestCollapseConstraints(t *testing.T) {
	const n = 8
	for _, collapseConstraints := range []bool{false, true} {
		m := grid(t, n, n)
		ecm := remesh.EdgeSet{}
		row := n / 2
		var line []mesh.Edge
		for i := 0; i < n; i++ {
			a := mesh.Vertex(row*(n+1) + i)
			e := m.FindHalfEdge(a, a+1).Edge()
			ecm.SetConstrained(e, true)
			line = append(line, e)
		}
		// cut the constrained row into pieces much shorter than the rest.
		p := remesh.DefaultParms()
		p.EdgeConstrained = ecm
		require.NoError(t, remesh.SplitLongEdges(line, 0.3, m, p))
		require.Len(t, ecm, 4*n)
		onLine := map[mesh.Vertex]bool{}
		for e := range ecm {
			a, b := m.EdgeVertices(e)
			onLine[a], onLine[b] = true, true
		}

		r, err := remesh.NewRemesher(m, m.Faces(), p)
		require.NoError(t, err)
		r.CollapseShortEdges(0.8, 2, collapseConstraints)
		require.NoError(t, m.Validate())
		if !collapseConstraints {
			require.Len(t, ecm, 4*n)
			for v := range onLine {
				require.False(t, m.VertexDeleted(v))
			}
			continue
		}
		require.Less(t, len(ecm), 4*n)
		for e := range ecm {
			require.False(t, m.EdgeDeleted(e))
			a, b := m.EdgeVertices(e)
			require.InDelta(t, row, m.Point(a).Y, 1e-12)
			require.InDelta(t, row, m.Point(b).Y, 1e-12)
		}
		// line ends meet the mesh border and are kept.
		require.False(t, m.VertexDeleted(mesh.Vertex(row*(n+1))))
		require.False(t, m.VertexDeleted(mesh.Vertex(row*(n+1)+n)))
	}
}

func TestPartialSelection(t *testing.T) {
	m := grid(t, 8, 8)
	var selected, untouched []mesh.Face
	for _, f := range m.Faces() {
		if centroid(m, f).X < 4 {
			selected = append(selected, f)
		} else {
			untouched = append(untouched, f)
		}
	}
	before := map[mesh.Face][3]r3.Vec{}
	for _, f := range untouched {
		before[f] = m.Triangle(f)
	}
	p := remesh.DefaultParms()
	p.ProtectConstraints = true
	p.NumberOfIterations = 2
	require.NoError(t, remesh.IsotropicRemeshing(selected, 1, m, p))
	require.NoError(t, m.Validate())
	for f, tri := range before {
		require.False(t, m.FaceDeleted(f))
		require.Equal(t, tri, m.Triangle(f))
	}
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	m := grid(t, 2, 4)
	p := remesh.DefaultParms()
	p.Observer = remesh.LogObserver{Logger: log.New(&buf, "", 0)}
	require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 1, m, p))
	out := buf.String()
	for _, stage := range []string{"split", "collapse", "equalize", "relax", "project"} {
		require.Contains(t, out, stage)
	}
}

func TestLengthConvergence(t *testing.T) {
	outside := func(iterations int) float64 {
		m := grid(t, 1, 10)
		p := remesh.DefaultParms()
		p.NumberOfIterations = iterations
		require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 1, m, p))
		return 1 - fractionIn(edgeLengths(m), 0.8, 4./3.+1e-9)
	}
	first, last := outside(1), outside(5)
	require.LessOrEqual(t, last, first+0.03, "more edges out of range after 5 iterations")
	require.LessOrEqual(t, last, 0.15)
}

func TestZeroParms(t *testing.T) {
	m := grid(t, 2, 4)
	stages := map[remesh.Stage]int{}
	p := remesh.Parms{
		Observer: remesh.ObserverFunc(func(r remesh.StageReport) { stages[r.Stage]++ }),
	}
	require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 1, m, p))
	require.NoError(t, m.Validate())
	for _, stage := range []remesh.Stage{remesh.StageSplit, remesh.StageCollapse, remesh.StageEqualize, remesh.StageRelax} {
		require.Equal(t, 1, stages[stage], "stage %v", stage)
	}
	require.Zero(t, stages[remesh.StageProject])
}

func TestLockedVertices(t *testing.T) {
	const n = 8
	for _, target := range []float64{0.6, 1.3} {
		m := grid(t, n, n)
		// an interior vertex and a border vertex.
		locked := remesh.VertexSet{40: true, 4: true}
		before := map[mesh.Vertex]r3.Vec{40: m.Point(40), 4: m.Point(4)}
		p := remesh.DefaultParms()
		p.NumberOfIterations = 3
		p.VertexConstrained = locked
		require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), target, m, p))
		require.NoError(t, m.Validate())
		for v, pos := range before {
			require.False(t, m.VertexDeleted(v), "target %g: locked vertex %d removed", target, v)
			require.Equal(t, pos, m.Point(v), "target %g: locked vertex %d moved", target, v)
		}
	}
}

func TestStagesKeepMeshValid(t *testing.T) {
	const n, row, target = 8, 3, 0.7
	m := grid(t, n, n)
	ecm := constrainRow(t, m, n, row)
	lockedAt := m.Point(60)
	p := remesh.DefaultParms()
	p.EdgeConstrained = ecm
	p.VertexConstrained = remesh.VertexSet{60: true}
	p.RelaxConstraints = true
	r, err := remesh.NewRemesher(m, m.Faces(), p)
	require.NoError(t, err)
	stages := []struct {
		name string
		run  func()
	}{
		{"split", func() { r.SplitLongEdges(4. / 3 * target) }},
		{"collapse", func() { r.CollapseShortEdges(4./5*target, 4./3*target, true) }},
		{"equalize", func() { r.EqualizeValences() }},
		{"relax", func() { r.TangentialRelaxation(true, 1) }},
		{"project", func() { r.ProjectToSurface(nil) }},
	}
	for it := 0; it < 6; it++ {
		for _, stage := range stages {
			stage.run()
			require.NoError(t, m.Validate(), "after %s in iteration %d", stage.name, it)
		}
	}
	require.False(t, m.VertexDeleted(60))
	require.Equal(t, lockedAt, m.Point(60))
	require.NotEmpty(t, ecm)
	for e := range ecm {
		require.False(t, m.EdgeDeleted(e))
		a, b := m.EdgeVertices(e)
		require.InDelta(t, row, m.Point(a).Y, 1e-9)
		require.InDelta(t, row, m.Point(b).Y, 1e-9)
	}
	require.False(t, m.VertexDeleted(mesh.Vertex(row*(n+1))))
	require.False(t, m.VertexDeleted(mesh.Vertex(row*(n+1)+n)))
}

func TestRelaxConstraints(t *testing.T) {
	const n, row = 8, 3
	m := grid(t, n, n)
	ecm := constrainRow(t, m, n, row)
	// shift vertex (3,3) along the row.
	v := mesh.Vertex(row*(n+1) + 3)
	m.SetPoint(v, r3.Vec{X: 3.3, Y: row})
	p := remesh.DefaultParms()
	p.EdgeConstrained = ecm
	r, err := remesh.NewRemesher(m, m.Faces(), p)
	require.NoError(t, err)

	r.TangentialRelaxation(false, 1)
	require.Equal(t, r3.Vec{X: 3.3, Y: row}, m.Point(v), "constrained vertex relaxed")

	r.TangentialRelaxation(true, 1)
	require.InDelta(t, 3, m.Point(v).X, 1e-12, "vertex did not slide to the middle of its neighbors")
	r.ProjectToSurface(nil)
	require.InDelta(t, 3, m.Point(v).X, 1e-12)
	for i := 0; i <= n; i++ {
		pt := m.Point(mesh.Vertex(row*(n+1) + i))
		require.InDelta(t, row, pt.Y, 1e-12, "vertex %d left the row", i)
		require.True(t, pt.X >= 0 && pt.X <= n)
	}
}

func TestFacePatch(t *testing.T) {
	const n = 4
	m := grid(t, n, n)
	nf := len(m.Faces())
	ids := remesh.PatchIDs{}
	for _, f := range m.Faces() {
		if centroid(m, f).X < n/2 {
			ids[f] = 7
		} else {
			ids[f] = 9
		}
	}
	p := remesh.DefaultParms()
	p.NumberOfIterations = 2
	p.FacePatch = ids
	require.NoError(t, remesh.IsotropicRemeshing(m.Faces(), 0.5, m, p))
	require.NoError(t, m.Validate())
	require.Greater(t, len(m.Faces()), nf)
	created := 0
	for _, f := range m.Faces() {
		id, ok := ids[f]
		require.True(t, ok, "face %d has no patch", f)
		want := 9
		if centroid(m, f).X < n/2 {
			want = 7
		}
		require.Equal(t, want, id, "face %d at %v", f, centroid(m, f))
		if int(f) >= nf {
			created++
		}
	}
	require.Greater(t, created, 0)
}
