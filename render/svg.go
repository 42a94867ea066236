package render

import (
	"errors"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/mesh"
)

// WriteWireframeSVG draws the edges of m projected onto the XY plane as an
// SVG image whose longest side is size pixels. Border edges are drawn in
// red.
func WriteWireframeSVG(w io.Writer, m *mesh.Mesh, size int) error {
	if size <= 0 {
		return errors.New("svg size must be positive")
	}
	edges := m.Edges()
	if len(edges) == 0 {
		return errors.New("mesh has no edges")
	}
	bb := d3.EmptyBox()
	for _, v := range m.Vertices() {
		bb = bb.Include(m.Point(v))
	}
	const margin = 10
	sz := bb.Size()
	extent := math.Max(sz.X, sz.Y)
	if extent == 0 {
		return errors.New("mesh has no extent in the XY plane")
	}
	scale := float64(size-2*margin) / extent
	width := int(math.Ceil(sz.X*scale)) + 2*margin
	height := int(math.Ceil(sz.Y*scale)) + 2*margin
	pixel := func(p r3.Vec) (int, int) {
		x := margin + (p.X-bb.Min.X)*scale
		// SVG Y axis points down.
		y := float64(height-margin) - (p.Y-bb.Min.Y)*scale
		return int(math.Round(x)), int(math.Round(y))
	}

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:white")
	canvas.Gstyle("stroke:black;stroke-width:1;stroke-linecap:round")
	var borders []mesh.Edge
	for _, e := range edges {
		if m.IsBoundaryEdge(e) {
			borders = append(borders, e)
			continue
		}
		a, b := m.EdgeVertices(e)
		x1, y1 := pixel(m.Point(a))
		x2, y2 := pixel(m.Point(b))
		canvas.Line(x1, y1, x2, y2)
	}
	canvas.Gend()
	canvas.Gstyle("stroke:red;stroke-width:2;stroke-linecap:round")
	for _, e := range borders {
		a, b := m.EdgeVertices(e)
		x1, y1 := pixel(m.Point(a))
		x2, y2 := pixel(m.Point(b))
		canvas.Line(x1, y1, x2, y2)
	}
	canvas.Gend()
	canvas.End()
	return nil
}
