package render

import (
	"github.com/fogleman/simplify"
	"gonum.org/v1/gonum/spatial/r3"
)

// Decimate reduces model to about factor times its triangle count with
// quadric error edge collapses. Dense scans are decimated before remeshing
// so the remesher does not spend its first iteration collapsing.
func Decimate(model []Triangle3, factor float64) []Triangle3 {
	if factor <= 0 || factor >= 1 || len(model) == 0 {
		return model
	}
	tris := make([]*simplify.Triangle, len(model))
	for i, t := range model {
		tris[i] = simplify.NewTriangle(toSimplify(t[0]), toSimplify(t[1]), toSimplify(t[2]))
	}
	out := simplify.NewMesh(tris).Simplify(factor)
	result := make([]Triangle3, 0, len(out.Triangles))
	for _, t := range out.Triangles {
		tri := Triangle3{fromSimplify(t.V1), fromSimplify(t.V2), fromSimplify(t.V3)}
		if tri.Degenerate(0) {
			continue
		}
		result = append(result, tri)
	}
	return result
}

func toSimplify(v r3.Vec) simplify.Vector { return simplify.Vector{X: v.X, Y: v.Y, Z: v.Z} }

func fromSimplify(v simplify.Vector) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
