// Public domain.

package gfmodel

import (
	"errors"
	"math"
	"sort"
)

// OpacityTable is an optical depth τ(E) tabulated at increasing energies.
type OpacityTable struct {
	e, tau []float64
}

// ErrOpacity is returned for a malformed opacity table.
var ErrOpacity = errors.New("gfmodel: opacity table needs increasing positive energies and non-negative depths")

// NewOpacityTable copies energies (TeV) and optical depths into a table.
func NewOpacityTable(e, tau []float64) (*OpacityTable, error) {
	if len(e) < 2 || len(e) != len(tau) {
		return nil, ErrOpacity
	}
	for i := range e {
		if !(e[i] > 0) || tau[i] < 0 || i > 0 && !(e[i] > e[i-1]) {
			return nil, ErrOpacity
		}
	}
	return &OpacityTable{
		e:   append([]float64{}, e...),
		tau: append([]float64{}, tau...),
	}, nil
}

// Tau interpolates the optical depth at energy e.
//
// Interpolation is linear in log τ vs log E where both neighbors are
// positive, linear in τ vs log E otherwise.  Outside the table the end
// values hold.
func (t *OpacityTable) Tau(e float64) float64 {
	n := len(t.e)
	switch {
	case e <= t.e[0]:
		return t.tau[0]
	case e >= t.e[n-1]:
		return t.tau[n-1]
	}
	i := sort.SearchFloat64s(t.e, e) // t.e[i-1] < e <= t.e[i]
	lo, hi := t.tau[i-1], t.tau[i]
	f := math.Log(e/t.e[i-1]) / math.Log(t.e[i]/t.e[i-1])
	if lo > 0 && hi > 0 {
		return lo * math.Pow(hi/lo, f)
	}
	return lo + f*(hi-lo)
}

// Absorbed is a Spectrum attenuated by exp(-τ(E)).
type Absorbed struct {
	Base    Spectrum
	Opacity *OpacityTable
}

func (a *Absorbed) att(e float64) float64 { return math.Exp(-a.Opacity.Tau(e)) }

func (a *Absorbed) DNdE(e float64, p []float64) float64 {
	return a.Base.DNdE(e, p) * a.att(e)
}

func (a *Absorbed) Grad(dst []float64, e float64, p []float64) {
	a.Base.Grad(dst, e, p)
	t := a.att(e)
	for i := range dst {
		dst[i] *= t
	}
}

func (a *Absorbed) NPar() int            { return a.Base.NPar() }
func (a *Absorbed) Params() []ParamDef   { return a.Base.Params() }
func (a *Absorbed) ParamNames() []string { return a.Base.ParamNames() }
func (a *Absorbed) Pivot() float64       { return a.Base.Pivot() }
func (a *Absorbed) Name() string         { return a.Base.Name() + "+ebl" }

func (a *Absorbed) Description() string {
	return a.Base.Description() + " with EBL absorption"
}

func (a *Absorbed) InRange(e float64) bool { return a.Base.InRange(e) }
