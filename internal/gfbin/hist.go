// Public domain.

package gfbin

import (
	"fmt"
	"math"
)

// Hist is a histogram on a Binning.
type Hist struct {
	Bins   *Binning
	Counts []float64
}

// NewHist allocates an empty histogram on b.
func NewHist(b *Binning) *Hist {
	return &Hist{Bins: b, Counts: make([]float64, b.N())}
}

// Total sums all bins.
func (h *Hist) Total() (t float64) {
	for _, c := range h.Counts {
		t += c
	}
	return
}

// Clone returns a deep copy.  The binning is shared; it is immutable.
func (h *Hist) Clone() *Hist {
	return &Hist{Bins: h.Bins, Counts: append([]float64{}, h.Counts...)}
}

// Fill adds w to the bin containing log10 energy x.  Values outside the
// binning are dropped.
func (h *Hist) Fill(x, w float64) {
	if i, ok := h.Bins.Index(x); ok {
		h.Counts[i] += w
	}
}

// At returns the value in the bin containing log10 energy x, 0 outside.
func (h *Hist) At(x float64) float64 {
	if i, ok := h.Bins.Index(x); ok {
		return h.Counts[i]
	}
	return 0
}

// Rebin returns h summed onto nb.
//
// Every edge of nb must coincide with an edge of h's binning.  When both
// binnings are uniform the new width must also be an integer multiple of
// the old.  Bins of h outside nb are dropped.  h is not modified.
func Rebin(h *Hist, nb *Binning) (*Hist, error) {
	ob := h.Bins
	if ob.Equal(nb) {
		return &Hist{Bins: nb, Counts: append([]float64{}, h.Counts...)}, nil
	}
	if ob.Uniform() && nb.Uniform() {
		r := nb.Width(0) / ob.Width(0)
		if k := math.Round(r); k < 1 || math.Abs(r-k) > edgeTol*k {
			return nil, fmt.Errorf("%w: ratio %g", ErrWidth, r)
		}
	}
	ix := make([]int, len(nb.edges))
	for i, e := range nb.edges {
		j, ok := ob.edgeIndex(e)
		if !ok {
			return nil, fmt.Errorf("%w: %g", ErrMisaligned, e)
		}
		ix[i] = j
	}
	r := NewHist(nb)
	for i := range r.Counts {
		for j := ix[i]; j < ix[i+1]; j++ {
			r.Counts[i] += h.Counts[j]
		}
	}
	return r, nil
}

// Regroup merges consecutive bins of h: the first group[0] bins become
// the first new bin, the next group[1] the second and so on.  The groups
// must cover all bins of h exactly.
func Regroup(h *Hist, group []int) (*Hist, error) {
	ob := h.Bins
	edges := []float64{ob.edges[0]}
	j := 0
	for _, g := range group {
		if g < 1 || j+g > ob.N() {
			return nil, ErrGroup
		}
		j += g
		edges = append(edges, ob.edges[j])
	}
	if j != ob.N() {
		return nil, ErrGroup
	}
	nb, err := NewEdges(edges)
	if err != nil {
		return nil, err
	}
	return Rebin(h, nb)
}
