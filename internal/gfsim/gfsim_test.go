// Public domain.

package gfsim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfsim"
)

func init() {
	gflog.Discard()
}

var (
	crab, _ = gfmodel.New(gfmodel.PowerLaw, 1, 0, 0)
	crabP   = []float64{3.5e-11, -2.5}
)

func TestResponse(t *testing.T) {
	c := gfsim.Default()
	aeff, m := c.Response.Build(c.Grid, c.True)
	require.NoError(t, m.Check())
	for l := 0; l < c.True.N(); l++ {
		assert.Greater(t, aeff.Counts[l], 0.)
		assert.LessOrEqual(t, aeff.Counts[l], c.Response.AreaMax)
		var s float64
		for j := range m.M {
			s += m.M[j][l]
		}
		assert.InDelta(t, 1, s, 1e-9, "column %d", l)
	}
	// the area at 1 TeV follows the turn on curve
	r := c.Response
	l1, ok := c.True.EnergyIndex(1)
	require.True(t, ok)
	e := c.True.Energy(l1)
	assert.InEpsilon(t, r.AreaMax*e*e/(e*e+r.ETurnOn*r.ETurnOn), aeff.At(0), 1e-12)
	// a true bin well inside the grid is reconstructed without bias
	l, _ := c.True.EnergyIndex(2)
	assert.Less(t, m.Bias(l), .05)
}

func TestAsimov(t *testing.T) {
	s, err := gfsim.New(gfsim.Default(), 1)
	require.NoError(t, err)
	on, off := s.Expected(crab, crabP)
	ds := s.Asimov(crab, crabP)
	require.NoError(t, ds.Validate())
	require.Len(t, ds.Runs, 10)
	for i, r := range ds.Runs {
		assert.Equal(t, on[i], r.On.Counts)
		assert.Equal(t, off[i], r.Off.Counts)
	}
	// a strong source: some hundreds of excess counts per run
	r := ds.Runs[0]
	excess := r.On.Total() - r.Alpha*r.Off.Total()
	assert.Greater(t, excess, 100.)
	assert.Less(t, excess, 1000.)
}

func TestDraw(t *testing.T) {
	s1, _ := gfsim.New(gfsim.Default(), 7)
	s2, _ := gfsim.New(gfsim.Default(), 7)
	d1 := s1.Draw(crab, crabP)
	d2 := s2.Draw(crab, crabP)
	for i := range d1.Runs {
		assert.Equal(t, d1.Runs[i].On.Counts, d2.Runs[i].On.Counts, "same seed")
	}
	on, _ := s1.Expected(crab, crabP)
	var n, mean float64
	for i, r := range d1.Runs {
		for j, c := range r.On.Counts {
			assert.Equal(t, math.Floor(c), c)
			n += c
			mean += on[i][j]
		}
	}
	// five standard deviations
	assert.InDelta(t, mean, n, 5*math.Sqrt(mean))
}

func TestLight(t *testing.T) {
	c := gfsim.Default()
	c.Light = func(mjd float64) float64 {
		if mjd < 56005 {
			return 1
		}
		return 3
	}
	s, _ := gfsim.New(c, 1)
	ds := s.Asimov(crab, crabP)
	ex := func(i int) float64 {
		r := ds.Runs[i]
		return r.On.Total() - r.Alpha*r.Off.Total()
	}
	assert.InEpsilon(t, 3*ex(0), ex(9), 1e-9)
}

func TestCheck(t *testing.T) {
	c := gfsim.Default()
	c.Alpha = 0
	_, err := gfsim.New(c, 1)
	assert.Error(t, err)
	c = gfsim.Default()
	c.Runs = 0
	_, err = gfsim.New(c, 1)
	assert.Error(t, err)
}
