// Public domain.

package gffold_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/gammafit/internal/gffold"
	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
	"github.com/soniakeys/gammafit/internal/gfsim"
)

func init() {
	gflog.Discard()
}

var pl, _ = gfmodel.New(gfmodel.PowerLaw, 1, 0, 0)

func dataset(t *testing.T, c gfsim.Config) *gfrun.Dataset {
	s, err := gfsim.New(c, 1)
	require.NoError(t, err)
	return s.Asimov(pl, []float64{3.5e-11, -2.5})
}

func TestBiasCut(t *testing.T) {
	c := gfsim.Default()
	c.Runs = 1
	c.Response.Bias = .1
	ds := dataset(t, c)
	all := gffold.Prepare(ds, 0)
	cut := gffold.Prepare(ds, gffold.DefaultMaxBias)
	loose := gffold.Prepare(ds, 1)
	assert.Less(t, len(cut.Columns(0)), len(all.Columns(0)))
	assert.LessOrEqual(t, len(cut.Columns(0)), len(loose.Columns(0)))
	assert.LessOrEqual(t, len(loose.Columns(0)), len(all.Columns(0)))
	for _, l := range cut.Columns(0) {
		assert.LessOrEqual(t, ds.Runs[0].Migration.Bias(l), gffold.DefaultMaxBias)
	}
}

func TestNoResponse(t *testing.T) {
	c := gfsim.Default()
	c.Runs = 2
	ds := dataset(t, c)
	ds.Runs[1].Aeff = nil
	f := gffold.Prepare(ds, gffold.DefaultMaxBias)
	assert.True(t, f.Usable(0))
	assert.False(t, f.Usable(1))
	assert.Nil(t, f.Predict(1, pl, []float64{3.5e-11, -2.5}, nil))
	assert.Nil(t, f.Columns(1))
	assert.Zero(t, f.Expected(1, pl, []float64{3.5e-11, -2.5}))
	assert.Same(t, ds, f.Dataset())
}

func TestPredictScaling(t *testing.T) {
	c := gfsim.Default()
	c.Runs = 2
	ds := dataset(t, c)
	ds.Runs[1].Live *= 2
	f := gffold.Prepare(ds, gffold.DefaultMaxBias)
	p := []float64{3.5e-11, -2.5}
	a := f.Predict(0, pl, p, nil)
	require.Len(t, a, ds.Grid.N())
	b := f.Predict(0, pl, []float64{7e-11, -2.5}, nil)
	l := f.Predict(1, pl, p, nil)
	for j := range a {
		assert.InDelta(t, 2*a[j], b[j], 1e-9*a[j]+1e-300)
		assert.InDelta(t, 2*a[j], l[j], 1e-9*a[j]+1e-300)
	}
	assert.Greater(t, f.Expected(0, pl, p), 0.)

	// dst is reused and overwritten
	dst := make([]float64, len(a))
	dst[0] = 1e9
	got := f.Predict(0, pl, p, dst)
	assert.Equal(t, &dst[0], &got[0])
	assert.Equal(t, a, got)
}

func TestSofterSpectrumFewerCounts(t *testing.T) {
	c := gfsim.Default()
	c.Runs = 1
	ds := dataset(t, c)
	f := gffold.Prepare(ds, gffold.DefaultMaxBias)
	hard := f.Predict(0, pl, []float64{3.5e-11, -2}, nil)
	soft := f.Predict(0, pl, []float64{3.5e-11, -3}, nil)
	n := len(hard)
	// same normalization at 1 TeV: the soft spectrum wins low, loses high
	assert.Greater(t, soft[0], hard[0])
	assert.Less(t, soft[n-1], hard[n-1])
}
