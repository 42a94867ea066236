package render

import (
	"bytes"
	"strings"
	"testing"
)

func TestToMesh(t *testing.T) {
	model := sphereModel(1, 8, 16)
	m, err := ToMesh(model, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	// 2 poles and 7 rings of 16 vertices.
	if got := len(m.Vertices()); got != 2+7*16 {
		t.Errorf("got %d welded vertices, want %d", got, 2+7*16)
	}
	if got := len(m.Faces()); got != len(model) {
		t.Errorf("got %d faces, want %d", got, len(model))
	}
	for _, v := range m.Vertices() {
		if m.IsBoundaryVertex(v) {
			t.Fatalf("closed sphere has border vertex %d", v)
		}
	}
	back := FromMesh(m)
	if len(back) != len(model) {
		t.Fatalf("FromMesh returned %d triangles, want %d", len(back), len(model))
	}
	bb := Bounds(back)
	if bb.Max.Z != 1 || bb.Min.Z != -1 {
		t.Errorf("unexpected bounds %v", bb)
	}
}

func TestToMeshWeldTolerance(t *testing.T) {
	const eps = 1e-7
	model := []Triangle3{
		{{}, {X: 1}, {Y: 1}},
		{{X: 1 + eps}, {X: 1, Y: 1}, {Y: 1 - eps}},
	}
	m, err := ToMesh(model, 1e-5)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(m.Vertices()); got != 4 {
		t.Errorf("got %d vertices, want 4", got)
	}
	if got := len(m.Edges()); got != 5 {
		t.Errorf("got %d edges, want 5", got)
	}
	// a tolerance larger than the triangles is refused.
	if _, err := ToMesh(model, 10); err == nil {
		t.Error("expected error for large tolerance")
	}
	if _, err := ToMesh(nil, 0); err == nil {
		t.Error("expected error for empty model")
	}
	// welding drops triangles that collapse.
	model = append(model, Triangle3{{}, {X: eps}, {Y: 1}})
	m, err = ToMesh(model, 1e-5)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(m.Faces()); got != 2 {
		t.Errorf("got %d faces, want 2", got)
	}
}

func TestDecimate(t *testing.T) {
	model := sphereModel(1, 24, 48)
	got := Decimate(model, 0.25)
	if len(got) == 0 || len(got) >= len(model) {
		t.Fatalf("decimated %d triangles to %d", len(model), len(got))
	}
	if len(Decimate(model, 1)) != len(model) {
		t.Error("factor 1 must keep the model")
	}
}

func TestWriteWireframeSVG(t *testing.T) {
	m, err := ToMesh([]Triangle3{{{}, {X: 1}, {Y: 1}}, {{X: 1}, {X: 1, Y: 1}, {Y: 1}}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	err = WriteWireframeSVG(&b, m, 200)
	if err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("not an svg document: %.40q", out)
	}
	if n := strings.Count(out, "<line"); n != 5 {
		t.Errorf("got %d lines, want 5", n)
	}
	if err := WriteWireframeSVG(&b, m, 0); err == nil {
		t.Error("expected error for zero size")
	}
}

func TestWritePNG(t *testing.T) {
	view := DefaultView()
	view.Width, view.Height, view.Scale = 64, 48, 1
	path := t.TempDir() + "/sphere.png"
	err := WritePNG(path, sphereModel(1, 8, 16), view)
	if err != nil {
		t.Fatal(err)
	}
	if err := WritePNG(path, nil, view); err == nil {
		t.Error("expected error for empty model")
	}
}
