// Public domain.

package gfbin

import (
	"fmt"
	"math"
)

// Matrix is an energy migration matrix.  M[j][l] is the probability that
// an event of true energy bin l is reconstructed in bin j.
type Matrix struct {
	Rec, True *Binning
	M         [][]float64
}

// NewMatrix allocates a zero matrix.
func NewMatrix(rec, tr *Binning) *Matrix {
	m := make([][]float64, rec.N())
	for j := range m {
		m[j] = make([]float64, tr.N())
	}
	return &Matrix{Rec: rec, True: tr, M: m}
}

// Check verifies the matrix dimensions against its binnings.
func (m *Matrix) Check() error {
	if len(m.M) != m.Rec.N() {
		return fmt.Errorf("gfbin: migration matrix has %d rows, want %d",
			len(m.M), m.Rec.N())
	}
	for j, row := range m.M {
		if len(row) != m.True.N() {
			return fmt.Errorf("gfbin: migration matrix row %d has %d columns, want %d",
				j, len(row), m.True.N())
		}
	}
	return nil
}

// RebinRec returns a copy with reconstructed rows summed onto nb, under
// the same alignment rules as Rebin.
func (m *Matrix) RebinRec(nb *Binning) (*Matrix, error) {
	r := NewMatrix(nb, m.True)
	col := &Hist{Bins: m.Rec, Counts: make([]float64, m.Rec.N())}
	for l := 0; l < m.True.N(); l++ {
		for j := range col.Counts {
			col.Counts[j] = m.M[j][l]
		}
		rc, err := Rebin(col, nb)
		if err != nil {
			return nil, err
		}
		for j, v := range rc.Counts {
			r.M[j][l] = v
		}
	}
	return r, nil
}

// NormalizeColumns returns a copy with each non-empty true-energy column
// scaled to sum to 1.
func (m *Matrix) NormalizeColumns() *Matrix {
	r := NewMatrix(m.Rec, m.True)
	for l := 0; l < m.True.N(); l++ {
		var s float64
		for j := range m.M {
			s += m.M[j][l]
		}
		if s <= 0 {
			continue
		}
		for j := range m.M {
			r.M[j][l] = m.M[j][l] / s
		}
	}
	return r
}

// ColumnMean returns the probability weighted mean reconstructed energy,
// in TeV, of true-energy column l.  Ok is false for an empty column.
func (m *Matrix) ColumnMean(l int) (e float64, ok bool) {
	var s, w float64
	for j := range m.M {
		p := m.M[j][l]
		s += p
		w += p * m.Rec.Energy(j)
	}
	if s <= 0 {
		return
	}
	return w / s, true
}

// Bias is |E_true - mean(E_rec)| / E_true for column l, using the log
// center of the true bin.  An empty column has infinite bias.
func (m *Matrix) Bias(l int) float64 {
	mean, ok := m.ColumnMean(l)
	if !ok {
		return math.Inf(1)
	}
	et := m.True.Energy(l)
	return math.Abs(et-mean) / et
}
