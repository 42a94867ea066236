// Command remesh remeshes an STL model into a mesh of near uniform edge
// length and writes the result as a binary STL file.
//
//	remesh -l 0.5 -n 5 part.stl -o part_remeshed.stl --png preview.png
package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/soypat/remesh"
	"github.com/soypat/remesh/mesh"
	"github.com/soypat/remesh/quality"
	"github.com/soypat/remesh/render"
)

type config struct {
	input, output       string
	target              float64
	iterations, relax   int
	protect             bool
	collapseConstraints bool
	relaxConstraints    bool
	project             bool
	featureAngle        float64
	weld                float64
	decimate            float64
	png, svg, hist      string
	quiet               bool
}

func main() {
	var cfg config
	app := kingpin.New("remesh", "Isotropic remeshing of triangle meshes stored in STL files.")
	app.Arg("input", "ASCII or binary STL file to remesh.").Required().ExistingFileVar(&cfg.input)
	app.Flag("output", "Output binary STL file.").Short('o').Default("remeshed.stl").StringVar(&cfg.output)
	app.Flag("target", "Target edge length. Zero uses the mean edge length of the input.").Short('l').Default("0").Float64Var(&cfg.target)
	app.Flag("iterations", "Number of remeshing iterations.").Short('n').Default("1").IntVar(&cfg.iterations)
	app.Flag("relax", "Tangential relaxation steps per iteration.").Default("1").IntVar(&cfg.relax)
	app.Flag("protect", "Never split or collapse borders and sharp edges.").BoolVar(&cfg.protect)
	app.Flag("collapse-constraints", "Allow collapsing sharp edges.").Default("true").BoolVar(&cfg.collapseConstraints)
	app.Flag("relax-constraints", "Slide vertices along borders and sharp edges during relaxation.").BoolVar(&cfg.relaxConstraints)
	app.Flag("project", "Project vertices back onto the input surface.").Default("true").BoolVar(&cfg.project)
	app.Flag("feature-angle", "Dihedral angle in degrees above which edges are kept as sharp features. Zero disables detection.").Default("60").Float64Var(&cfg.featureAngle)
	app.Flag("weld", "Vertex welding tolerance. Zero infers it from the model.").Default("0").Float64Var(&cfg.weld)
	app.Flag("decimate", "Decimate the input to this fraction of its triangles before remeshing.").Default("0").Float64Var(&cfg.decimate)
	app.Flag("png", "Write a shaded preview of the result.").StringVar(&cfg.png)
	app.Flag("svg", "Write a wireframe of the result seen from +Z.").StringVar(&cfg.svg)
	app.Flag("hist", "Write a histogram of result edge lengths (png, svg or pdf).").StringVar(&cfg.hist)
	app.Flag("quiet", "Do not log stage progress.").Short('q').BoolVar(&cfg.quiet)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config) error {
	start := time.Now()
	model, err := render.LoadSTL(cfg.input)
	if errors.Is(err, render.ErrNormalMismatch) {
		log.Printf("warning: %s: %v", cfg.input, err)
	} else if err != nil {
		return err
	}
	if cfg.decimate > 0 {
		n := len(model)
		model = render.Decimate(model, cfg.decimate)
		log.Printf("decimated %d triangles to %d", n, len(model))
	}
	m, err := render.ToMesh(model, cfg.weld)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.input, err)
	}
	before := quality.Measure(m)
	target := cfg.target
	if target == 0 {
		target = before.MeanLength
	}

	p := remesh.DefaultParms()
	p.NumberOfIterations = cfg.iterations
	p.NumberOfRelaxationSteps = cfg.relax
	p.ProtectConstraints = cfg.protect
	p.CollapseConstraints = cfg.collapseConstraints
	p.RelaxConstraints = cfg.relaxConstraints
	p.DoProject = cfg.project
	if cfg.featureAngle > 0 {
		sharp := sharpEdges(m, cfg.featureAngle)
		log.Printf("%d sharp edges above %g°", len(sharp), cfg.featureAngle)
		p.EdgeConstrained = sharp
	}
	if !cfg.quiet {
		p.Observer = remesh.LogObserver{Logger: log.New(os.Stderr, "remesh: ", 0)}
	}
	err = remesh.IsotropicRemeshing(m.Faces(), target, m, p)
	if err != nil {
		return err
	}
	after := quality.Measure(m)
	result := render.FromMesh(m)
	if err := render.CreateSTL(cfg.output, result); err != nil {
		return err
	}

	fmt.Println(aurora.Bold("input: "), before)
	fmt.Println(aurora.Bold("output:"), after)
	inRange := quality.FractionInRange(quality.EdgeLengths(m), 0.8*target, 4./3.*target)
	summary := aurora.Green(fmt.Sprintf("%.1f%% of edges within [0.8, 1.33]×%.4g", 100*inRange, target))
	if inRange < 0.5 {
		summary = aurora.Yellow(fmt.Sprintf("only %.1f%% of edges within [0.8, 1.33]×%.4g, try more iterations", 100*inRange, target))
	}
	fmt.Println(summary)
	fmt.Printf("wrote %s in %v\n", aurora.Cyan(cfg.output), time.Since(start).Round(time.Millisecond))

	if cfg.png != "" {
		if err := render.WritePNG(cfg.png, result, render.DefaultView()); err != nil {
			return fmt.Errorf("png: %w", err)
		}
	}
	if cfg.svg != "" {
		fp, err := os.Create(cfg.svg)
		if err != nil {
			return err
		}
		err = render.WriteWireframeSVG(fp, m, 1024)
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("svg: %w", err)
		}
	}
	if cfg.hist != "" {
		if err := quality.WriteHistogram(cfg.hist, quality.EdgeLengths(m), 0, target); err != nil {
			return fmt.Errorf("histogram: %w", err)
		}
	}
	return nil
}

// sharpEdges flags interior edges whose adjacent faces meet at a dihedral
// angle larger than angle degrees.
func sharpEdges(m *mesh.Mesh, angle float64) remesh.EdgeSet {
	cosMax := math.Cos(angle * math.Pi / 180)
	sharp := remesh.EdgeSet{}
	for _, e := range m.Edges() {
		if m.IsBoundaryEdge(e) {
			continue
		}
		h := e.HalfEdge(0)
		n1 := triangleNormal(m.Triangle(m.Face(h)))
		n2 := triangleNormal(m.Triangle(m.Face(h.Opposite())))
		if r3.Norm2(n1) == 0 || r3.Norm2(n2) == 0 {
			continue
		}
		if r3.Cos(n1, n2) < cosMax {
			sharp.SetConstrained(e, true)
		}
	}
	return sharp
}

func triangleNormal(t [3]r3.Vec) r3.Vec {
	return r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
}
