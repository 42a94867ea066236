package quality

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteHistogram saves a histogram of edge lengths to path. The image
// format is taken from the path extension (png, svg, pdf...). A positive
// target is drawn as a vertical line.
func WriteHistogram(path string, lengths []float64, bins int, target float64) error {
	if len(lengths) == 0 {
		return errors.New("no edge lengths to plot")
	}
	if bins <= 0 {
		bins = 32
	}
	p := plot.New()
	p.Title.Text = "Edge lengths"
	p.X.Label.Text = "length"
	p.Y.Label.Text = "edges"
	h, err := plotter.NewHist(plotter.Values(lengths), bins)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	p.Add(h)
	if target > 0 {
		_, _, _, top := h.DataRange()
		line, err := plotter.NewLine(plotter.XYs{{X: target, Y: 0}, {X: target, Y: top}})
		if err != nil {
			return err
		}
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(line)
		p.Legend.Add("target", line)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
