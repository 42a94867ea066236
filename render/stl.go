package render

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
)

// Binary STL layout: an 80 byte comment and a triangle count, then one
// record per triangle.
const (
	stlHeaderSize   = 84
	stlTriangleSize = 50
)

// ErrNormalMismatch is wrapped by the STL readers when stored triangle
// normals disagree with the winding of their vertices. The triangles are
// returned regardless.
var ErrNormalMismatch = errors.New("triangle normal not approximately equal to calculated normal from vertices")

// CreateSTL writes model to a binary STL file at path.
func CreateSTL(path string, model []Triangle3) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(fp)
	err = WriteSTL(bw, model)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteSTL writes model triangles to a writer in binary STL file format.
func WriteSTL(w io.Writer, model []Triangle3) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	var b [stlTriangleSize]byte
	binary.LittleEndian.PutUint32(b[:4], uint32(len(model)))
	if _, err := w.Write(make([]byte, stlHeaderSize-4)); err != nil {
		return err
	}
	if _, err := w.Write(b[:4]); err != nil {
		return err
	}
	for _, t := range model {
		rec := recordOf(t.Normal(), t)
		rec.marshal(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadSTL reads a binary STL model. Triangles whose stored normal does
// not match the normal computed from their vertices are still returned,
// along with an error wrapping ErrNormalMismatch.
func ReadSTL(r io.Reader) (output []Triangle3, readErr error) {
	var head [stlHeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, fmt.Errorf("reading STL header: %w", err)
	}
	count := int(binary.LittleEndian.Uint32(head[80:]))
	if count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	var (
		buf [stlTriangleSize]byte
		rec stlRecord
		i   int
		bad mismatchCounter
	)
	defer func() {
		if readErr != nil && !errors.Is(readErr, ErrNormalMismatch) {
			readErr = fmt.Errorf("%d/%d STL triangles read: %w", i+1, count, readErr)
		}
	}()
	output = make([]Triangle3, 0, count)
	for i = 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		rec.unmarshal(buf[:])
		if err := bad.check(rec); err != nil {
			return nil, err
		}
		output = append(output, rec.triangle())
	}
	return output, bad.err()
}

// LoadSTL reads an ASCII or binary STL file. Triangles are validated the
// same way ReadSTL does.
func LoadSTL(path string) ([]Triangle3, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(solid.Triangles) == 0 {
		return nil, fmt.Errorf("%s: no triangles", path)
	}
	output := make([]Triangle3, 0, len(solid.Triangles))
	var bad mismatchCounter
	for i, t := range solid.Triangles {
		var rec stlRecord
		copy(rec[:3], t.Normal[:])
		for j, v := range t.Vertices {
			copy(rec[3+3*j:], v[:])
		}
		if err := bad.check(rec); err != nil {
			return nil, fmt.Errorf("%s: triangle %d: %w", path, i, err)
		}
		output = append(output, rec.triangle())
	}
	return output, bad.err()
}

// stlRecord is a triangle record in file order: the normal then the three
// vertices. The trailing attribute word is always written as zero.
type stlRecord [12]float32

func recordOf(normal r3.Vec, t Triangle3) stlRecord {
	var rec stlRecord
	for i, v := range [4]r3.Vec{normal, t[0], t[1], t[2]} {
		rec[3*i], rec[3*i+1], rec[3*i+2] = float32(v.X), float32(v.Y), float32(v.Z)
	}
	return rec
}

func (rec *stlRecord) marshal(b []byte) {
	_ = b[stlTriangleSize-1]
	for i, f := range rec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (rec *stlRecord) unmarshal(b []byte) {
	_ = b[stlTriangleSize-1]
	for i := range rec {
		rec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
}

// vec returns the i'th vector of the record, 0 being the normal.
func (rec *stlRecord) vec(i int) r3.Vec {
	return r3.Vec{X: float64(rec[3*i]), Y: float64(rec[3*i+1]), Z: float64(rec[3*i+2])}
}

func (rec *stlRecord) triangle() Triangle3 {
	return Triangle3{rec.vec(1), rec.vec(2), rec.vec(3)}
}

func (rec *stlRecord) validate() error {
	const (
		coincident = 1e-12
		normTol    = 5e-2
	)
	for i, f := range rec {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			if i < 3 {
				return errors.New("inf/NaN STL triangle normal")
			}
			return errors.New("inf/NaN STL triangle vertex")
		}
	}
	for i := 1; i <= 3; i++ {
		j := i%3 + 1
		if within32(rec[3*i:3*i+3], rec[3*j:3*j+3], coincident) {
			return errors.New("triangle is degenerate")
		}
	}
	if rec[0] == 0 && rec[1] == 0 && rec[2] == 0 {
		// many exporters leave the normal unset.
		return nil
	}
	// scaled up to keep small triangles from rounding to a zero normal.
	a, b, c := r3.Scale(10, rec.vec(1)), r3.Scale(10, rec.vec(2)), r3.Scale(10, rec.vec(3))
	n := recordOf(r3.Unit(r3.Cross(r3.Sub(b, a), r3.Sub(c, a))), Triangle3{})
	flipped := [3]float32{-n[0], -n[1], -n[2]}
	if !within32(n[:3], rec[:3], normTol) && !within32(flipped[:], rec[:3], normTol) {
		return ErrNormalMismatch
	}
	return nil
}

func within32(a, b []float32, tol float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// mismatchCounter validates records and tallies normal mismatches.
type mismatchCounter int

func (c *mismatchCounter) check(rec stlRecord) error {
	err := rec.validate()
	if errors.Is(err, ErrNormalMismatch) {
		*c++
		return nil
	}
	return err
}

func (c mismatchCounter) err() error {
	if c == 0 {
		return nil
	}
	return fmt.Errorf("%d triangles: %w", int(c), ErrNormalMismatch)
}
