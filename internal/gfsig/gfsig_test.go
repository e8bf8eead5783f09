// Public domain.

package gfsig_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfsig"
)

func init() {
	gflog.Discard()
}

func ExampleSignificance() {
	for _, f := range []gfsig.Formula{gfsig.Simple, gfsig.LiMa5, gfsig.LiMa17} {
		fmt.Printf("%-6s %.2f\n", f, gfsig.Significance(100, 200, .2, f))
	}
	// Output:
	// simple 5.77
	// lima5  7.75
	// lima17 7.03
}

func TestSignificanceZero(t *testing.T) {
	for _, f := range []gfsig.Formula{gfsig.Simple, gfsig.LiMa5, gfsig.LiMa17} {
		assert.Zero(t, gfsig.Significance(0, 0, .2, f), f.String())
		assert.Zero(t, gfsig.Significance(30, 10, 0, f), f.String())
	}
	assert.Zero(t, gfsig.Significance(10, 10, .1, gfsig.Formula(9)))
}

func TestLiMa17(t *testing.T) {
	// 100 ln 2 + 200 ln .8
	want := math.Sqrt(2 * (100*math.Ln2 + 200*math.Log(.8)))
	assert.InDelta(t, want, gfsig.Significance(100, 200, .2, gfsig.LiMa17), 1e-12)
	assert.InDelta(t, 7.0265, want, 1e-4)

	// deficit gives negative significance
	assert.Less(t, gfsig.Significance(20, 200, .2, gfsig.LiMa17), 0.)

	// exact zero special cases stay finite
	s := gfsig.Significance(0, 50, .2, gfsig.LiMa17)
	assert.False(t, math.IsNaN(s))
	assert.Less(t, s, 0.)
	s = gfsig.Significance(12, 0, .2, gfsig.LiMa17)
	assert.Greater(t, s, 0.)

	// balanced counts clamp to zero
	assert.Zero(t, gfsig.Significance(20, 100, .2, gfsig.LiMa17))
}

func TestBinTS(t *testing.T) {
	s := gfsig.Significance(100, 200, .2, gfsig.LiMa17)
	assert.InDelta(t, s*s, gfsig.BinTS(100, 200, .2), 1e-9)
	assert.Zero(t, gfsig.BinTS(0, 0, .2))
	assert.Zero(t, gfsig.BinTS(10, 10, 0))
}

func TestOffMeanNonNegative(t *testing.T) {
	rnd := rand.New(&rand.PCGSource{})
	rnd.Seed(3)
	for i := 0; i < 10000; i++ {
		alpha := math.Exp(rnd.Float64()*8 - 6)
		non := math.Floor(rnd.Float64() * 500)
		noff := math.Floor(rnd.Float64() * 5000)
		s := rnd.Float64() * 1000
		if i%10 == 0 {
			s = 0
		}
		b := gfsig.OffMean(non, noff, alpha, s)
		require.GreaterOrEqual(t, b, 0., "alpha %g non %g noff %g s %g",
			alpha, non, noff, s)
		require.False(t, math.IsNaN(b))
	}
}

func TestOffMeanStationary(t *testing.T) {
	// gradient of the profiled likelihood vanishes at the root
	for _, c := range []struct{ non, noff, alpha, s float64 }{
		{100, 200, .2, 30},
		{5, 80, .1, 1},
		{40, 10, 1, 25},
		{3, 400, .05, 60},
	} {
		b := gfsig.OffMean(c.non, c.noff, c.alpha, c.s)
		g := c.alpha*c.non/(c.s+c.alpha*b) + c.noff/b - (c.alpha + 1)
		assert.InDelta(t, 0, g, 1e-9, "%+v", c)
	}
}

func TestOffMeanAlphaOne(t *testing.T) {
	non, noff, s := 50., 30., 12.
	a := non + noff - 2*s
	want := a/4 + math.Sqrt(a*a+8*noff*s)/4
	assert.InDelta(t, want, gfsig.OffMean(non, noff, 1, s), 1e-12)
}

func TestOffMeanNoSignal(t *testing.T) {
	// with s = 0 the background is the pooled estimate
	non, noff, alpha := 30., 200., .1
	want := (non + noff) / (1 + alpha)
	assert.InDelta(t, want, gfsig.OffMean(non, noff, alpha, 0), 1e-9)
}

var limitMethods = []gfsig.Method{gfsig.Helene, gfsig.NeymanGauss,
	gfsig.NeymanPoisson, gfsig.ProfileGauss, gfsig.ProfilePoisson}

func TestUpperLimitMonotoneCL(t *testing.T) {
	counts := []struct{ non, noff, ratio float64 }{
		{10, 100, .1},
		{25, 100, .2},
		{3, 40, .1},
		{400, 1500, .25},
	}
	for _, m := range limitMethods {
		for _, c := range counts {
			prev := 0.
			for _, cl := range []float64{.6, .68, .8, .9, .95, .99} {
				ul := gfsig.UpperLimit(c.non, c.noff, c.ratio, cl, m)
				assert.GreaterOrEqual(t, ul, prev-1e-6, "%s %+v cl %g", m, c, cl)
				prev = ul
			}
		}
	}
}

func TestUpperLimitAboveExcess(t *testing.T) {
	for _, m := range append(limitMethods, gfsig.FeldmanCousins) {
		ul := gfsig.UpperLimit(150, 100, .5, .95, m)
		assert.Greater(t, ul, 100., m.String())
		assert.Less(t, ul, 140., m.String())
	}
}

func TestHeleneLargeExcess(t *testing.T) {
	// far from the boundary Helene is the one-sided Gaussian limit
	non, noff, ratio := 1000., 1000., .1
	sigma := math.Sqrt(non + ratio*ratio*noff)
	want := 900 + 1.6448536*sigma
	assert.InDelta(t, want, gfsig.UpperLimit(non, noff, ratio, .95, gfsig.Helene), 1e-3)
}

func TestNeymanGaussMatchesHelene(t *testing.T) {
	for _, c := range []struct{ non, noff float64 }{{100, 100}, {120, 100}, {150, 100}} {
		h := gfsig.UpperLimit(c.non, c.noff, .9, .9, gfsig.Helene)
		n := gfsig.UpperLimit(c.non, c.noff, .9, .9, gfsig.NeymanGauss)
		assert.InDelta(t, h, n, 1e-3*h, "%+v", c)
	}
}

func TestNeymanRaisesOnCounts(t *testing.T) {
	// 5 on counts against 20 off are taken as 20 on
	for _, m := range []gfsig.Method{gfsig.NeymanGauss, gfsig.NeymanPoisson} {
		assert.InDelta(t, gfsig.UpperLimit(20, 20, .1, .95, m),
			gfsig.UpperLimit(5, 20, .1, .95, m), 1e-9, m.String())
	}
	sigma := math.Sqrt(20 + .01*20)
	assert.InDelta(t, 18+1.6448536*sigma,
		gfsig.UpperLimit(5, 20, .1, .95, gfsig.NeymanGauss), 1e-3)
}

func TestFeldmanCousinsTable(t *testing.T) {
	// Feldman & Cousins 1998 table IV, 90% CL, b = .1·noff
	for _, c := range []struct{ n, noff, want float64 }{
		{0, 0, 2.44},
		{1, 0, 4.36},
		{5, 0, 9.99},
		{0, 10, 1.61},
		{0, 20, 1.26},
		{0, 30, 1.08},
		{0, 35, 1.06},
		{0, 40, 1.01},
		{0, 50, .98},
		{1, 30, 1.88},
		{2, 30, 3.04},
		{3, 20, 5.42},
	} {
		assert.InDelta(t, c.want, gfsig.UpperLimit(c.n, c.noff, .1, .9, gfsig.FeldmanCousins),
			.02, "n %g b %g", c.n, .1*c.noff)
	}
}

func TestFeldmanCousinsBackground(t *testing.T) {
	// the limit for no counts never rises with more background
	prev := math.Inf(1)
	for noff := 0.; noff <= 60; noff += 2.5 {
		ul := gfsig.UpperLimit(0, noff, .1, .9, gfsig.FeldmanCousins)
		assert.LessOrEqual(t, ul, prev+1e-3, "b %g", .1*noff)
		prev = ul
	}
}

func TestUpperLimitInvalid(t *testing.T) {
	assert.Zero(t, gfsig.UpperLimit(10, 10, .1, .95, gfsig.Method(42)))
	assert.Zero(t, gfsig.UpperLimit(10, 10, 0, .95, gfsig.Helene))
	assert.Zero(t, gfsig.UpperLimit(10, 10, .1, 1.5, gfsig.Helene))
}

func TestParseMethod(t *testing.T) {
	for m := gfsig.Helene; m <= gfsig.ProfilePoisson; m++ {
		got, ok := gfsig.ParseMethod(m.String())
		require.True(t, ok)
		assert.Equal(t, m, got)
	}
	_, ok := gfsig.ParseMethod("bayes")
	assert.False(t, ok)
}
