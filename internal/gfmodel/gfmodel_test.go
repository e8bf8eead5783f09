// Public domain.

package gfmodel_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/soniakeys/gammafit/internal/gfmodel"
)

func ExampleModel_DNdE() {
	m, _ := gfmodel.New(gfmodel.PowerLaw, 1, 0, 0)
	p := []float64{3e-11, -2.5}
	for _, e := range []float64{.5, 1, 4} {
		fmt.Printf("%4.1f TeV  %.3e\n", e, m.DNdE(e, p))
	}
	// Output:
	//  0.5 TeV  1.697e-10
	//  1.0 TeV  3.000e-11
	//  4.0 TeV  9.375e-13
}

func params(k gfmodel.Kind) []float64 {
	switch k {
	case gfmodel.PowerLaw:
		return []float64{2e-11, -2.4}
	case gfmodel.CutoffPowerLaw:
		return []float64{2e-11, -2.1, 6}
	case gfmodel.CurvedPowerLaw:
		return []float64{2e-11, -2.2, -.08}
	case gfmodel.LogParabola:
		return []float64{2e-11, -2.3, -.3}
	case gfmodel.LogParabolaCutoff:
		return []float64{2e-11, -2.3, -.2, 15}
	case gfmodel.SuperExpCutoff:
		return []float64{2e-11, -1.9, 5, .7}
	case gfmodel.BrokenPowerLaw:
		return []float64{2e-11, -2, -3.1, 2.5}
	}
	panic("kind")
}

func TestParse(t *testing.T) {
	for _, k := range gfmodel.Kinds() {
		got, ok := gfmodel.Parse(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := gfmodel.Parse("spline")
	assert.False(t, ok)
	_, err := gfmodel.New(gfmodel.Kind(99), 1, 0, 0)
	assert.Error(t, err)
	_, err = gfmodel.New(gfmodel.PowerLaw, 0, 0, 0)
	assert.Error(t, err)
	_, err = gfmodel.New(gfmodel.PowerLaw, 1, 10, 1)
	assert.Error(t, err)
	_, err = gfmodel.New(gfmodel.PowerLaw, 1, 2, 2)
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	open, err := gfmodel.New(gfmodel.PowerLaw, 1, 0, 0)
	require.NoError(t, err)
	assert.True(t, open.InRange(1e-3))
	assert.True(t, open.InRange(1e3))

	low, err := gfmodel.New(gfmodel.PowerLaw, 1, .3, 0)
	require.NoError(t, err)
	assert.False(t, low.InRange(.2))
	assert.True(t, low.InRange(.3))
	assert.True(t, low.InRange(500))

	both, err := gfmodel.New(gfmodel.PowerLaw, 1, .3, 20)
	require.NoError(t, err)
	assert.True(t, both.InRange(20))
	assert.False(t, both.InRange(20.1))
}

func TestNormalizationAtPivot(t *testing.T) {
	// shapes without a cutoff equal N0 at E0
	for _, k := range []gfmodel.Kind{gfmodel.PowerLaw, gfmodel.CurvedPowerLaw,
		gfmodel.LogParabola} {
		m, _ := gfmodel.New(k, 1, 0, 0)
		p := params(k)
		assert.InDelta(t, p[0], m.DNdE(1, p), 1e-24, k.String())
	}
}

func TestGradMatchesNumeric(t *testing.T) {
	for _, k := range gfmodel.Kinds() {
		m, err := gfmodel.New(k, 1.3, 0, 0)
		require.NoError(t, err)
		p := params(k)
		require.Len(t, p, m.NPar())
		require.Len(t, m.ParamNames(), m.NPar())
		for _, e := range []float64{.2, .9, 1.3, 3.7, 12} {
			g := make([]float64, m.NPar())
			m.Grad(g, e, p)
			want := fd.Gradient(nil, func(q []float64) float64 {
				return m.DNdE(e, q)
			}, p, &fd.Settings{Formula: fd.Central})
			for i := range g {
				scale := math.Max(math.Abs(want[i]), 1e-14)
				if i == 0 {
					scale = math.Max(scale, 1)
				}
				assert.InDelta(t, want[i], g[i], 1e-4*scale,
					"%s e %g param %s", k, e, m.ParamNames()[i])
			}
		}
	}
}

func TestBrokenPowerLawContinuous(t *testing.T) {
	m, _ := gfmodel.New(gfmodel.BrokenPowerLaw, 1, 0, 0)
	p := params(gfmodel.BrokenPowerLaw)
	eb := p[3]
	below := m.DNdE(eb*(1-1e-9), p)
	above := m.DNdE(eb, p)
	assert.InDelta(t, 1, below/above, 1e-7)
}

func TestLocalIndex(t *testing.T) {
	pl, _ := gfmodel.New(gfmodel.PowerLaw, 1, 0, 0)
	assert.InDelta(t, -2.4, gfmodel.LocalIndex(pl, 3, params(gfmodel.PowerLaw)), 1e-6)
	// normalization does not matter
	assert.InDelta(t, -2.4, gfmodel.LocalIndex(pl, 3, []float64{0, -2.4}), 1e-6)

	ec, _ := gfmodel.New(gfmodel.CutoffPowerLaw, 1, 0, 0)
	p := params(gfmodel.CutoffPowerLaw)
	for _, e := range []float64{.5, 2, 8} {
		assert.InDelta(t, p[1]-e/p[2], gfmodel.LocalIndex(ec, e, p), 1e-6)
	}

	lp, _ := gfmodel.New(gfmodel.LogParabola, 1, 0, 0)
	p = params(gfmodel.LogParabola)
	e := 5.
	want := p[1] + 2*p[2]*math.Log10(e)
	assert.InDelta(t, want, gfmodel.LocalIndex(lp, e, p), 1e-6)
}

func TestCentroid(t *testing.T) {
	numeric := func(e1, e2, g float64) float64 {
		const n = 200000
		var s, w float64
		h := (e2 - e1) / n
		for i := 0; i < n; i++ {
			e := e1 + (float64(i)+.5)*h
			f := math.Pow(e, g)
			s += f
			w += f * e
		}
		return w / s
	}
	for _, g := range []float64{-1, -2, -2.5, -1.5, 0, -3.2} {
		c := gfmodel.Centroid(1, 3, g)
		assert.InDelta(t, numeric(1, 3, g), c, 1e-6, "gamma %g", g)
		assert.Greater(t, c, 1.)
		assert.Less(t, c, 3.)
	}
	// continuous through the special cases
	assert.InDelta(t, gfmodel.Centroid(1, 3, -2), gfmodel.Centroid(1, 3, -2+1e-6), 1e-5)
}

func TestFlux(t *testing.T) {
	m, _ := gfmodel.New(gfmodel.PowerLaw, 1, 0, 0)
	p := []float64{1e-11, -2.5}
	want := p[0] / -1.5 * (math.Pow(10, -1.5) - math.Pow(.5, -1.5))
	assert.InEpsilon(t, want, gfmodel.Flux(m, p, .5, 10), 1e-9)
	assert.Zero(t, gfmodel.Flux(m, p, 2, 1))
}

func TestVariance(t *testing.T) {
	m, _ := gfmodel.New(gfmodel.PowerLaw, 1, 0, 0)
	p := []float64{1e-11, -2.5}
	sn, sg, rho := 1e-12, .1, -.3
	cov := mat.NewSymDense(2, []float64{
		sn * sn, rho * sn * sg,
		rho * sn * sg, sg * sg,
	})
	for _, e := range []float64{.3, 1, 7} {
		x := math.Pow(e, p[1])
		f := p[0] * x
		l := math.Log(e)
		want := x*x*sn*sn + f*f*l*l*sg*sg + 2*x*f*l*rho*sn*sg
		assert.InEpsilon(t, want, gfmodel.Variance(m, p, cov, e), 1e-9, "e %g", e)
	}
	// at the pivot only the normalization error remains
	assert.InEpsilon(t, sn*sn, gfmodel.Variance(m, p, cov, 1), 1e-12)
}

func TestOpacityTable(t *testing.T) {
	_, err := gfmodel.NewOpacityTable([]float64{1}, []float64{0})
	assert.ErrorIs(t, err, gfmodel.ErrOpacity)
	_, err = gfmodel.NewOpacityTable([]float64{1, 1}, []float64{0, 1})
	assert.ErrorIs(t, err, gfmodel.ErrOpacity)
	_, err = gfmodel.NewOpacityTable([]float64{1, 2}, []float64{0, -1})
	assert.ErrorIs(t, err, gfmodel.ErrOpacity)

	tb, err := gfmodel.NewOpacityTable([]float64{.1, 1, 10}, []float64{0, .5, 8})
	require.NoError(t, err)
	assert.Equal(t, 0., tb.Tau(.05))
	assert.Equal(t, 8., tb.Tau(20))
	assert.InDelta(t, .5, tb.Tau(1), 1e-12)
	// linear in log E next to a zero depth
	assert.InDelta(t, .25, tb.Tau(math.Sqrt(.1)), 1e-12)
	// power law between positive depths
	assert.InDelta(t, 2, tb.Tau(math.Sqrt(10)), 1e-12)
}

func TestAbsorbed(t *testing.T) {
	m, _ := gfmodel.New(gfmodel.CutoffPowerLaw, 1, 0, 0)
	tb, _ := gfmodel.NewOpacityTable([]float64{.1, 1, 10}, []float64{0, .5, 8})
	a := &gfmodel.Absorbed{Base: m, Opacity: tb}
	var s gfmodel.Spectrum = a
	p := params(gfmodel.CutoffPowerLaw)
	assert.Equal(t, "ecpl+ebl", s.Name())
	assert.Equal(t, "power law with exponential cutoff with EBL absorption", s.Description())
	assert.True(t, s.InRange(50))
	assert.Equal(t, m.NPar(), s.NPar())
	e := 3.
	att := math.Exp(-tb.Tau(e))
	assert.InEpsilon(t, m.DNdE(e, p)*att, s.DNdE(e, p), 1e-12)

	g := make([]float64, 3)
	gb := make([]float64, 3)
	s.Grad(g, e, p)
	m.Grad(gb, e, p)
	for i := range g {
		assert.InEpsilon(t, gb[i]*att, g[i], 1e-12)
	}
}

func TestInit(t *testing.T) {
	m, _ := gfmodel.New(gfmodel.SuperExpCutoff, 1, 0, 0)
	p := gfmodel.Init(m)
	require.Len(t, p, 4)
	for i, d := range m.Params() {
		assert.Equal(t, d.Init, p[i])
		assert.GreaterOrEqual(t, d.Init, d.Min)
		assert.LessOrEqual(t, d.Init, d.Max)
		assert.Greater(t, d.Step, 0.)
	}
}
