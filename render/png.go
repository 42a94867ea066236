package render

import (
	"errors"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
)

// View configures the camera of WritePNG. The model is scaled to fit a
// bi-unit cube centered at the origin before drawing.
type View struct {
	// what position (point) to look at
	LookAt r3.Vec
	// which way is up (direction)
	Up r3.Vec
	// where the camera/eye located at (point)
	Eye       r3.Vec
	Near, Far float64
	// output width and height in pixels.
	Width, Height int
	// Supersampling factor used for antialiasing.
	Scale int
}

// DefaultView looks at the origin from (3,3,3) with Z up.
func DefaultView() View {
	return View{
		Up:     r3.Vec{Z: 1},
		Eye:    d3.Elem(3),
		Near:   1,
		Far:    10,
		Width:  1024,
		Height: 768,
		Scale:  2,
	}
}

// WritePNG draws a shaded image of model as seen from view and saves it
// as a PNG file at path.
func WritePNG(path string, model []Triangle3, view View) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	if view.Width <= 0 || view.Height <= 0 {
		return errors.New("view width and height must be positive")
	}
	if view.Scale < 1 {
		view.Scale = 1
	}
	const fovy = 30 // vertical field of view in degrees
	tris := make([]*fauxgl.Triangle, 0, len(model))
	for _, t := range model {
		if t.Degenerate(0) {
			continue
		}
		tris = append(tris, fauxgl.NewTriangleForPoints(toFauxgl(t[0]), toFauxgl(t[1]), toFauxgl(t[2])))
	}
	mesh := fauxgl.NewTriangleMesh(tris)
	var (
		eye    = toFauxgl(view.Eye)
		center = toFauxgl(view.LookAt)
		up     = toFauxgl(view.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()
	context := fauxgl.NewContext(view.Width*view.Scale, view.Height*view.Scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	image := context.Image()
	image = resize.Resize(uint(view.Width), uint(view.Height), image, resize.Bilinear)
	return fauxgl.SavePNG(path, image)
}

func toFauxgl(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
