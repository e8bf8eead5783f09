// Public domain.

// Package gfbin defines the log-energy binning shared by all runs of an
// analysis, histograms on that binning, and response matrices.
//
// Energies are in TeV.  Bin edges are log10(E/TeV).  A Binning is
// immutable once constructed; histograms are rebinned with pure functions
// that return new values.
package gfbin

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"sort"
)

// edgeTol is the tolerance in log10 energy for two edges to coincide.
const edgeTol = 1e-6

// Errors returned by binning constructors and rebinning.
var (
	ErrEdges      = errors.New("gfbin: bin edges must be strictly increasing, at least two")
	ErrMisaligned = errors.New("gfbin: new bin edge does not coincide with an existing edge")
	ErrWidth      = errors.New("gfbin: new bin width is not an integer multiple of existing width")
	ErrGroup      = errors.New("gfbin: grouping does not cover the histogram")
)

// Binning is an ordered set of non-overlapping bins on the log10 energy
// axis.
type Binning struct {
	edges   []float64
	uniform bool
}

// NewLog constructs n equal-width bins from log10Min to log10Max.
func NewLog(n int, log10Min, log10Max float64) (*Binning, error) {
	if n < 1 || !(log10Max > log10Min) {
		return nil, fmt.Errorf("%w: n=%d range %g..%g", ErrEdges, n, log10Min, log10Max)
	}
	e := make([]float64, n+1)
	w := (log10Max - log10Min) / float64(n)
	for i := range e {
		e[i] = log10Min + float64(i)*w
	}
	e[n] = log10Max
	return &Binning{edges: e, uniform: true}, nil
}

// NewEdges constructs a binning from explicit log10 edges.  The slice is
// copied.
func NewEdges(edges []float64) (*Binning, error) {
	if len(edges) < 2 {
		return nil, ErrEdges
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, ErrEdges
		}
	}
	b := &Binning{edges: append([]float64{}, edges...)}
	b.uniform = b.checkUniform()
	return b, nil
}

func (b *Binning) checkUniform() bool {
	w := b.Width(0)
	for i := 1; i < b.N(); i++ {
		if math.Abs(b.Width(i)-w) > edgeTol {
			return false
		}
	}
	return true
}

// N is the number of bins.
func (b *Binning) N() int { return len(b.edges) - 1 }

// Lo and Hi are the log10 edges of bin i.
func (b *Binning) Lo(i int) float64 { return b.edges[i] }
func (b *Binning) Hi(i int) float64 { return b.edges[i+1] }

// Min and Max are the outer log10 edges.
func (b *Binning) Min() float64 { return b.edges[0] }
func (b *Binning) Max() float64 { return b.edges[len(b.edges)-1] }

// Center is the log10 bin center.
func (b *Binning) Center(i int) float64 { return .5 * (b.edges[i] + b.edges[i+1]) }

// Width is the log10 bin width.
func (b *Binning) Width(i int) float64 { return b.edges[i+1] - b.edges[i] }

// Energy is the energy at the log center of bin i, in TeV.
func (b *Binning) Energy(i int) float64 { return math.Pow(10, b.Center(i)) }

// EnergyLo and EnergyHi are the bin edges in TeV.
func (b *Binning) EnergyLo(i int) float64 { return math.Pow(10, b.edges[i]) }
func (b *Binning) EnergyHi(i int) float64 { return math.Pow(10, b.edges[i+1]) }

// EnergyWidth is the linear bin width in TeV.
func (b *Binning) EnergyWidth(i int) float64 { return b.EnergyHi(i) - b.EnergyLo(i) }

// Edges returns a copy of the log10 edges.
func (b *Binning) Edges() []float64 { return append([]float64{}, b.edges...) }

// Uniform reports whether all bins have the same log10 width.
func (b *Binning) Uniform() bool { return b.uniform }

// Index returns the index of the bin containing log10 energy x.  Ok is
// false if x is outside the binning.
func (b *Binning) Index(x float64) (i int, ok bool) {
	if x < b.edges[0] || x >= b.edges[len(b.edges)-1] {
		return
	}
	// first edge > x, less one
	i = sort.SearchFloat64s(b.edges, x)
	if i == len(b.edges) || b.edges[i] > x {
		i--
	}
	return i, true
}

// EnergyIndex is Index for an energy in TeV.
func (b *Binning) EnergyIndex(e float64) (int, bool) {
	if !(e > 0) {
		return 0, false
	}
	return b.Index(math.Log10(e))
}

// Equal reports whether two binnings have the same edges.
func (b *Binning) Equal(o *Binning) bool {
	if b == o {
		return true
	}
	if b == nil || o == nil || len(b.edges) != len(o.edges) {
		return false
	}
	for i, e := range b.edges {
		if math.Abs(e-o.edges[i]) > edgeTol {
			return false
		}
	}
	return true
}

// edgeIndex returns the index of the edge coinciding with x.
func (b *Binning) edgeIndex(x float64) (int, bool) {
	i := sort.SearchFloat64s(b.edges, x-edgeTol)
	if i < len(b.edges) && math.Abs(b.edges[i]-x) <= edgeTol {
		return i, true
	}
	return 0, false
}

// GobEncode implements gob.GobEncoder.
func (b *Binning) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(b.edges)
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder.
func (b *Binning) GobDecode(p []byte) error {
	var e []float64
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&e); err != nil {
		return err
	}
	nb, err := NewEdges(e)
	if err != nil {
		return err
	}
	*b = *nb
	return nil
}
