// Public domain.

package gfconf_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/gammafit/internal/gfconf"
	"github.com/soniakeys/gammafit/internal/gffit"
	"github.com/soniakeys/gammafit/internal/gfmodel"
)

func parse(t *testing.T, s string) (*gfconf.Config, error) {
	t.Helper()
	return gfconf.Parse(strings.NewReader(s))
}

func TestDefaults(t *testing.T) {
	c, err := parse(t, "")
	require.NoError(t, err)
	assert.Equal(t, gfconf.Default(), c)
	assert.Equal(t, .25, c.Binning.MaxBias)
	assert.Equal(t, .25, c.MaxBias())
	assert.Equal(t, "pl", c.Fit.Model)
	assert.Equal(t, "migrad", c.Fit.Method)
	assert.Equal(t, 1., c.Fit.E0)
	assert.Equal(t, 1., c.LightCurve.Width)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, -.6, c.Sim.LogEMin)

	s, err := c.Spectrum()
	require.NoError(t, err)
	assert.Equal(t, "pl", s.Name())
	init, err := c.Init(s)
	require.NoError(t, err)
	assert.Nil(t, init)

	sc, err := c.SimConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, sc.Runs)
	assert.Equal(t, 12, sc.Grid.N())
	assert.Equal(t, 36, sc.True.N())
}

const full = `
binning:
  emin: 0.3
  emax: 20
  max_bias: -1
  stop_on: true
fit:
  model: ecpl
  e0: 2
  init: [2e-11, -2.2, 8]
  fixed: {2: 8}
  method: simplex
  minos: true
  contours: [[0, 1]]
ebl:
  energy: [0.1, 1, 10]
  tau: [0, 0.5, 3]
lightcurve:
  width: 7
  flux_emin: 1
exclude:
  runs: [3, 5]
  windows: [[56001, 56002]]
log:
  level: debug
  format: json
`

func TestFull(t *testing.T) {
	c, err := parse(t, full)
	require.NoError(t, err)
	assert.Zero(t, c.MaxBias())
	lo := c.LikeOptions()
	assert.Equal(t, .3, lo.EMin)
	assert.Equal(t, 20., lo.EMax)
	assert.True(t, lo.StopOn)
	assert.False(t, lo.StopOff)

	s, err := c.Spectrum()
	require.NoError(t, err)
	assert.Equal(t, "ecpl+ebl", s.Name())
	assert.Equal(t, 2., s.Pivot())
	init, err := c.Init(s)
	require.NoError(t, err)
	assert.Equal(t, []float64{2e-11, -2.2, 8}, init)

	fo := c.FitOptions()
	assert.Equal(t, "simplex", fo.Method)
	assert.True(t, fo.MinosAll)
	assert.Equal(t, map[int]float64{2: 8}, fo.Fixed)
	assert.Equal(t, [][2]int{{0, 1}}, fo.Contours)
	assert.Equal(t, 20, fo.ContourPoints)

	vo := c.VarOptions()
	assert.Equal(t, 7., vo.Width)
	assert.Equal(t, 1., vo.FluxEMin)
	assert.Equal(t, 100., vo.FluxEMax)

	x, err := c.Exclusions()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, x.Runs())
	assert.True(t, x.Overlaps(56001.5, 56001.6))
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLowerEnergyOnly(t *testing.T) {
	c, err := parse(t, "binning:\n  emin: 0.3\n")
	require.NoError(t, err)
	s, err := c.Spectrum()
	require.NoError(t, err)
	assert.False(t, s.InRange(.2))
	assert.True(t, s.InRange(80))
	lo := c.LikeOptions()
	assert.Equal(t, .3, lo.EMin)
	assert.Zero(t, lo.EMax)
}

func TestInitCount(t *testing.T) {
	c, err := parse(t, "fit:\n  init: [1e-11]\n")
	require.NoError(t, err)
	s, err := c.Spectrum()
	require.NoError(t, err)
	_, err = c.Init(s)
	assert.ErrorIs(t, err, gffit.ErrParamCount)
}

func TestInvalid(t *testing.T) {
	for _, tc := range []struct{ yaml, msg string }{
		{"fit:\n  model: spline\n", "Model must be one of"},
		{"fit:\n  method: newton\n", "Method"},
		{"fit:\n  contours: [[0, 1, 2]]\n", "Contours"},
		{"binning:\n  emin: 5\n  emax: 2\n", "emax"},
		{"ebl:\n  energy: [1, 2]\n  tau: [0]\n", "optical depths"},
		{"lightcurve:\n  width: -1\n", "Width must be greater than 0"},
		{"exclude:\n  windows: [[2, 1]]\n", "inverted"},
		{"sim:\n  dead_frac: 1\n", "DeadFrac"},
		{"log:\n  level: loud\n", "Level"},
		{"bogus: 1\n", "bogus"},
	} {
		_, err := parse(t, tc.yaml)
		if assert.Error(t, err, tc.yaml) {
			assert.Contains(t, err.Error(), tc.msg, tc.yaml)
		}
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("fit:\n  model: lp\n"), 0o644))
	c, err := gfconf.Read(fn)
	require.NoError(t, err)
	k, _ := gfmodel.Parse(c.Fit.Model)
	assert.Equal(t, gfmodel.LogParabola, k)

	_, err = gfconf.Read(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(fn, []byte("fit:\n  e0: -1\n"), 0o644))
	_, err = gfconf.Read(fn)
	assert.ErrorContains(t, err, fn)
}
