package spatial

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestClosestOnTriangle(t *testing.T) {
	a, b, c := r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}
	for _, test := range []struct {
		p, want r3.Vec
	}{
		{p: r3.Vec{X: 0.25, Y: 0.25, Z: 3}, want: r3.Vec{X: 0.25, Y: 0.25}},
		{p: r3.Vec{X: -1, Y: -1, Z: 1}, want: a},
		{p: r3.Vec{X: 2, Y: -1}, want: b},
		{p: r3.Vec{X: -1, Y: 2}, want: c},
		{p: r3.Vec{X: 0.5, Y: -2}, want: r3.Vec{X: 0.5}},
		{p: r3.Vec{X: -2, Y: 0.5}, want: r3.Vec{Y: 0.5}},
		{p: r3.Vec{X: 1, Y: 1, Z: -1}, want: r3.Vec{X: 0.5, Y: 0.5}},
	} {
		got := ClosestOnTriangle(test.p, a, b, c)
		if r3.Norm(r3.Sub(got, test.want)) > 1e-12 {
			t.Errorf("closest to %v: got %v, want %v", test.p, got, test.want)
		}
	}
}

func randomSoup(rng *rand.Rand, n int) [][3]r3.Vec {
	rv := func() r3.Vec {
		return r3.Vec{X: rng.Float64()*10 - 5, Y: rng.Float64()*10 - 5, Z: rng.Float64()*10 - 5}
	}
	tris := make([][3]r3.Vec, n)
	for i := range tris {
		o := rv()
		tris[i] = [3]r3.Vec{o, r3.Add(o, r3.Scale(0.1, rv())), r3.Add(o, r3.Scale(0.1, rv()))}
	}
	return tris
}

func TestBIHClosestPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tris := randomSoup(rng, 500)
	bih := NewBIH(tris)
	if bih.Len() != len(tris) {
		t.Fatalf("stored %d triangles, want %d", bih.Len(), len(tris))
	}
	for i := 0; i < 200; i++ {
		p := r3.Vec{X: rng.Float64()*14 - 7, Y: rng.Float64()*14 - 7, Z: rng.Float64()*14 - 7}
		wantD := math.Inf(1)
		for _, tri := range tris {
			q := ClosestOnTriangle(p, tri[0], tri[1], tri[2])
			wantD = math.Min(wantD, r3.Norm(r3.Sub(p, q)))
		}
		got, idx := bih.ClosestPoint(p)
		gotD := r3.Norm(r3.Sub(p, got))
		if math.Abs(gotD-wantD) > 1e-9 {
			t.Fatalf("point %v: BIH distance %g, brute force %g", p, gotD, wantD)
		}
		tri := tris[idx]
		onTri := ClosestOnTriangle(got, tri[0], tri[1], tri[2])
		if r3.Norm(r3.Sub(onTri, got)) > 1e-9 {
			t.Fatalf("point %v: reported triangle %d does not hold closest point", p, idx)
		}
		if d := bih.Distance(p); math.Abs(d-wantD) > 1e-9 {
			t.Fatalf("Distance %g, want %g", d, wantD)
		}
	}
}

func TestBIHDegenerate(t *testing.T) {
	tris := [][3]r3.Vec{
		{{}, {X: 1}, {X: 2}},
		{{}, {X: 1}, {Y: 1}},
	}
	bih := NewBIH(tris)
	if bih.Len() != 1 {
		t.Fatalf("stored %d triangles, want 1", bih.Len())
	}
	_, idx := bih.ClosestPoint(r3.Vec{X: 5})
	if idx != 1 {
		t.Errorf("got triangle %d, want 1", idx)
	}

	empty := NewBIH(nil)
	p := r3.Vec{X: 1, Y: 2, Z: 3}
	if q, idx := empty.ClosestPoint(p); q != p || idx != -1 {
		t.Errorf("empty hierarchy returned %v, %d", q, idx)
	}
	if !math.IsInf(empty.Distance(p), 1) {
		t.Error("empty hierarchy distance not infinite")
	}
}

type sphere struct {
	c r3.Vec
	r float64
}

func (s sphere) Evaluate(p r3.Vec) float64 { return r3.Norm(r3.Sub(p, s.c)) - s.r }
func (s sphere) Bounds() r3.Box {
	d := r3.Vec{X: s.r, Y: s.r, Z: s.r}
	return r3.Box{Min: r3.Sub(s.c, d), Max: r3.Add(s.c, d)}
}

func TestSDFProjector(t *testing.T) {
	s := sphere{c: r3.Vec{X: 1}, r: 2}
	proj := SDFProjector{SDF: s}
	for _, p := range []r3.Vec{{X: 5}, {X: 1, Y: 0.5}, {Y: 3, Z: -1}} {
		q := proj.Project(p)
		if d := math.Abs(s.Evaluate(q)); d > 1e-5 {
			t.Errorf("projection of %v is %g away from the surface", p, d)
		}
		dir := r3.Unit(r3.Sub(p, s.c))
		want := r3.Add(s.c, r3.Scale(s.r, dir))
		if r3.Norm(r3.Sub(q, want)) > 1e-4 {
			t.Errorf("projection of %v: got %v, want %v", p, q, want)
		}
		// projecting again is a no-op.
		if q2 := proj.Project(q); r3.Norm(r3.Sub(q2, q)) > 1e-5 {
			t.Errorf("second projection moved %v to %v", q, q2)
		}
	}
}
