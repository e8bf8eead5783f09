// Public domain.

// Package gfmodel defines parametric differential spectra dN/dE.
//
// Energies are in TeV and dN/dE in cm⁻² s⁻¹ TeV⁻¹.  Spectral indices
// follow the sign convention dN/dE ∝ E^Γ, so a typical index is negative.
//
// Every Spectrum has its linear normalization as parameter 0.  Code that
// refits normalization alone, or needs a shape independent of it, relies
// on that.
package gfmodel

import (
	"fmt"
	"math"
)

// Spectrum is a differential spectrum evaluated for a parameter vector.
type Spectrum interface {
	// DNdE evaluates the spectrum at energy e.
	DNdE(e float64, p []float64) float64
	// Grad stores partial derivatives of DNdE with respect to each
	// parameter in dst, which must have length NPar.
	Grad(dst []float64, e float64, p []float64)
	NPar() int
	Params() []ParamDef
	ParamNames() []string
	// Pivot is the normalization energy.
	Pivot() float64
	Name() string
	Description() string
	// InRange reports whether energy e is inside the validity range.
	InRange(e float64) bool
}

// ParamDef describes a parameter for a minimizer: initial value, step and
// bounds.  An infinite bound is no bound.
type ParamDef struct {
	Name     string
	Init     float64
	Step     float64
	Min, Max float64
}

// Kind selects a spectral shape.
type Kind int

const (
	PowerLaw       Kind = iota // N0 x^Γ
	CutoffPowerLaw             // N0 x^Γ exp(-E/Ec)
	CurvedPowerLaw             // N0 x^(Γ+βE)
	LogParabola                // N0 x^(Γ+β log10 x)
	LogParabolaCutoff          // log parabola times exp(-E/Ec)
	SuperExpCutoff             // N0 x^Γ exp(-(E/Ec)^b)
	BrokenPowerLaw             // N0 x^Γ1 below Eb, continuous Γ2 above
)

var (
	norm  = ParamDef{"N0", 1e-11, 1e-12, 0, math.Inf(1)}
	index = ParamDef{"Gamma", -2.5, .1, -10, 5}
	cut   = ParamDef{"Ecut", 10, 1, .01, 1000}
)

// kinds is the table of spectral shapes, indexed by Kind.
//
// In eval and grad, x is E/E0.
var kinds = []struct {
	abbr, desc string
	params     []ParamDef
	eval       func(e, x float64, p []float64) float64
	grad       func(dst []float64, e, x, f float64, p []float64)
}{
	{"pl", "power law",
		[]ParamDef{norm, index},
		func(e, x float64, p []float64) float64 {
			return p[0] * math.Pow(x, p[1])
		},
		func(dst []float64, e, x, f float64, p []float64) {
			dst[0] = math.Pow(x, p[1])
			dst[1] = f * math.Log(x)
		}},
	{"ecpl", "power law with exponential cutoff",
		[]ParamDef{norm, index, cut},
		func(e, x float64, p []float64) float64 {
			return p[0] * math.Pow(x, p[1]) * math.Exp(-e/p[2])
		},
		func(dst []float64, e, x, f float64, p []float64) {
			dst[0] = math.Pow(x, p[1]) * math.Exp(-e/p[2])
			dst[1] = f * math.Log(x)
			dst[2] = f * e / (p[2] * p[2])
		}},
	{"cpl", "curved power law",
		[]ParamDef{norm, index, {"Beta", 0, .02, -10, 10}},
		func(e, x float64, p []float64) float64 {
			return p[0] * math.Pow(x, p[1]+p[2]*e)
		},
		func(dst []float64, e, x, f float64, p []float64) {
			lx := math.Log(x)
			dst[0] = math.Pow(x, p[1]+p[2]*e)
			dst[1] = f * lx
			dst[2] = f * e * lx
		}},
	{"lp", "log parabola",
		[]ParamDef{norm, index, {"Beta", 0, .05, -10, 10}},
		func(e, x float64, p []float64) float64 {
			return p[0] * math.Pow(x, p[1]+p[2]*math.Log10(x))
		},
		func(dst []float64, e, x, f float64, p []float64) {
			lx := math.Log(x)
			dst[0] = math.Pow(x, p[1]+p[2]*math.Log10(x))
			dst[1] = f * lx
			dst[2] = f * lx * math.Log10(x)
		}},
	{"lpc", "log parabola with exponential cutoff",
		[]ParamDef{norm, index, {"Beta", 0, .05, -10, 10}, cut},
		func(e, x float64, p []float64) float64 {
			return p[0] * math.Pow(x, p[1]+p[2]*math.Log10(x)) * math.Exp(-e/p[3])
		},
		func(dst []float64, e, x, f float64, p []float64) {
			lx := math.Log(x)
			dst[0] = math.Pow(x, p[1]+p[2]*math.Log10(x)) * math.Exp(-e/p[3])
			dst[1] = f * lx
			dst[2] = f * lx * math.Log10(x)
			dst[3] = f * e / (p[3] * p[3])
		}},
	{"sec", "power law with super-exponential cutoff",
		[]ParamDef{norm, index, cut, {"B", 1, .1, .1, 5}},
		func(e, x float64, p []float64) float64 {
			return p[0] * math.Pow(x, p[1]) * math.Exp(-math.Pow(e/p[2], p[3]))
		},
		func(dst []float64, e, x, f float64, p []float64) {
			r := math.Pow(e/p[2], p[3])
			dst[0] = math.Pow(x, p[1]) * math.Exp(-r)
			dst[1] = f * math.Log(x)
			dst[2] = f * r * p[3] / p[2]
			dst[3] = -f * r * math.Log(e/p[2])
		}},
	{"bpl", "broken power law",
		[]ParamDef{norm, {"Gamma1", -2, .1, -10, 5}, {"Gamma2", -3, .1, -10, 5},
			{"Ebreak", 1, .1, .01, 100}},
		func(e, x float64, p []float64) float64 {
			if e < p[3] {
				return p[0] * math.Pow(x, p[1])
			}
			return p[0] * math.Pow(p[3]*x/e, p[1]) * math.Pow(e/p[3], p[2])
		},
		func(dst []float64, e, x, f float64, p []float64) {
			if e < p[3] {
				dst[0] = math.Pow(x, p[1])
				dst[1] = f * math.Log(x)
				dst[2] = 0
				dst[3] = 0
				return
			}
			xb := p[3] * x / e // Eb/E0
			dst[0] = math.Pow(xb, p[1]) * math.Pow(e/p[3], p[2])
			dst[1] = f * math.Log(xb)
			dst[2] = f * math.Log(e/p[3])
			dst[3] = f * (p[1] - p[2]) / p[3]
		}},
}

func (k Kind) valid() bool { return k >= 0 && int(k) < len(kinds) }

// String returns the short name used in configuration.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].abbr
}

// Description is a readable name.
func (k Kind) Description() string {
	if !k.valid() {
		return "unknown"
	}
	return kinds[k].desc
}

// Parse returns the Kind for a short name such as "pl" or "ecpl".
func Parse(name string) (Kind, bool) {
	for k, e := range kinds {
		if e.abbr == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds lists all spectral shapes.
func Kinds() []Kind {
	r := make([]Kind, len(kinds))
	for k := range r {
		r[k] = Kind(k)
	}
	return r
}

// Model is a spectral shape with normalization energy E0 and a validity
// range EMin..EMax in TeV.
type Model struct {
	Kind       Kind
	E0         float64
	EMin, EMax float64
}

// New constructs a Model.  E0 must be positive and the range, if given,
// must be ordered.  A zero emin or emax leaves that side open.
func New(k Kind, e0, emin, emax float64) (*Model, error) {
	switch {
	case !k.valid():
		return nil, fmt.Errorf("gfmodel: unknown spectral kind %d", int(k))
	case !(e0 > 0):
		return nil, fmt.Errorf("gfmodel: normalization energy %g not positive", e0)
	case emin < 0 || emax < 0 || emax > 0 && emax <= emin:
		return nil, fmt.Errorf("gfmodel: invalid energy range %g..%g", emin, emax)
	}
	return &Model{Kind: k, E0: e0, EMin: emin, EMax: emax}, nil
}

func (m *Model) DNdE(e float64, p []float64) float64 {
	return kinds[m.Kind].eval(e, e/m.E0, p)
}

func (m *Model) Grad(dst []float64, e float64, p []float64) {
	x := e / m.E0
	t := &kinds[m.Kind]
	t.grad(dst, e, x, t.eval(e, x, p), p)
}

func (m *Model) NPar() int { return len(kinds[m.Kind].params) }

// Params returns a copy of the parameter definitions.
func (m *Model) Params() []ParamDef {
	return append([]ParamDef{}, kinds[m.Kind].params...)
}

func (m *Model) ParamNames() []string {
	ps := kinds[m.Kind].params
	n := make([]string, len(ps))
	for i, p := range ps {
		n[i] = p.Name
	}
	return n
}

func (m *Model) Pivot() float64      { return m.E0 }
func (m *Model) Name() string        { return kinds[m.Kind].abbr }
func (m *Model) Description() string { return m.Kind.Description() }

// Init returns the default initial parameter vector.
func Init(s Spectrum) []float64 {
	ps := s.Params()
	p := make([]float64, len(ps))
	for i, d := range ps {
		p[i] = d.Init
	}
	return p
}

// InRange reports whether e is inside the model validity range.
func (m *Model) InRange(e float64) bool {
	return e >= m.EMin && (m.EMax == 0 || e <= m.EMax)
}
