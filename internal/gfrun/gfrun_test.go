// Public domain.

package gfrun_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/gammafit/internal/gfbin"
	"github.com/soniakeys/gammafit/internal/gfrun"
)

func ExampleExclusions() {
	x := gfrun.NewExclusions()
	x.AddWindow(55010, 55012)
	x.AddWindow(55000, 55001)
	x.AddWindow(55011, 55015)
	x.AddWindow(55001, 55002)
	x.AddRun(4711)
	fmt.Println(x.Windows())
	fmt.Println(x.Runs())
	// Output:
	// [{55000 55002} {55010 55015}]
	// [4711]
}

func TestExclusionsOverlaps(t *testing.T) {
	x := gfrun.NewExclusions()
	require.NoError(t, x.AddWindow(10, 20))
	require.NoError(t, x.AddWindow(30, 40))
	assert.Error(t, x.AddWindow(5, 5))
	for _, c := range []struct {
		a, b float64
		want bool
	}{
		{0, 5, false},
		{0, 10, false},
		{0, 10.1, true},
		{15, 16, true},
		{19.9, 25, true},
		{20, 30, false},
		{25, 35, true},
		{40, 50, false},
		{5, 50, true},
	} {
		assert.Equal(t, c.want, x.Overlaps(c.a, c.b), "%g..%g", c.a, c.b)
	}

	var none *gfrun.Exclusions
	assert.False(t, none.Overlaps(0, 100))
	assert.Zero(t, none.Len())
	assert.Zero(t, none.Clone().Len())
}

func TestExcludedRun(t *testing.T) {
	x := gfrun.NewExclusions()
	x.AddRun(7)
	x.AddWindow(100.5, 101)
	r := &gfrun.Run{ID: 7, MJD: 50, Live: 1800}
	assert.True(t, x.Excluded(r))
	r = &gfrun.Run{ID: 8, MJD: 100.49, Live: unit.Time(3 * 3600)}
	assert.True(t, x.Excluded(r), "run extends into window")
	r = &gfrun.Run{ID: 8, MJD: 100.2, Live: 1800}
	assert.False(t, x.Excluded(r))

	c := x.Clone()
	c.AddRun(8)
	assert.False(t, x.Excluded(r), "clone independent")
	assert.True(t, c.Excluded(r))
}

func TestParseExclusions(t *testing.T) {
	in := `# bad weather
run 64080
run six
mjd 55200.0 55201.5
mjd 55300 55299
mjd 55201 55202
heading line
`
	x, err := gfrun.ParseExclusions(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []int{64080}, x.Runs())
	assert.Equal(t, []gfrun.Window{{55200, 55202}}, x.Windows())

	_, err = gfrun.ParseExclusions(strings.NewReader("nothing here\n"))
	assert.Error(t, err)
}

func TestTimeBins(t *testing.T) {
	w, err := gfrun.TimeBins(0, 10, 4)
	require.NoError(t, err)
	assert.Equal(t, []gfrun.Window{{0, 4}, {4, 8}, {8, 10}}, w)
	assert.True(t, w[1].Contains(4))
	assert.False(t, w[1].Contains(8))
	_, err = gfrun.TimeBins(10, 0, 1)
	assert.Error(t, err)
	_, err = gfrun.TimeBins(0, 10, 0)
	assert.Error(t, err)
}

const testYAML = `
binning: {n: 4, min: -1, max: 1}
runs:
  - id: 2
    mjd: 55001.2
    live: 1200
    dead: .1
    alpha: .25
    zenith: 22.5
    threshold: .15
    counts:
      bins: {n: 8, min: -1, max: 1}
      on:  [1, 2, 3, 4, 5, 6, 7, 8]
      off: [4, 4, 4, 4, 2, 2, 2, 2]
    aeff:
      bins: {n: 2, min: -1, max: 1}
      values: [1000, 50000]
    migration:
      rows:
        - [2, 0]
        - [2, 0]
        - [0, 0]
        - [0, 0]
        - [0, 1]
        - [0, 1]
        - [0, 1]
        - [0, 1]
  - id: 1
    mjd: 55000.1
    live: 1800
    alpha: .2
    counts:
      on:  [1, 1, 1, 1]
      off: [5, 5, 5, 5]
`

func writeTemp(t *testing.T, name, s string) string {
	fn := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fn, []byte(s), 0o644))
	return fn
}

func TestReadFile(t *testing.T) {
	ds, err := gfrun.ReadFile(writeTemp(t, "crab.yaml", testYAML))
	require.NoError(t, err)
	assert.Equal(t, "crab", ds.Name)
	require.Len(t, ds.Runs, 2)
	assert.Equal(t, 1, ds.Runs[0].ID, "sorted by time")

	r := ds.Run(2)
	require.NotNil(t, r)
	assert.Equal(t, []float64{3, 7, 11, 15}, r.On.Counts)
	assert.Equal(t, []float64{8, 8, 4, 4}, r.Off.Counts)
	assert.InDelta(t, 1080, r.LiveSeconds(), 1e-9)
	assert.InDelta(t, 22.5, r.Zenith.Deg(), 1e-12)
	require.True(t, r.HasResponse())
	m := r.Migration
	assert.True(t, m.Rec.Equal(ds.Grid))
	assert.Equal(t, [][]float64{{1, 0}, {0, 0}, {0, .5}, {0, .5}}, m.M)

	assert.False(t, ds.Run(1).HasResponse())
	start, stop, ok := ds.Span()
	require.True(t, ok)
	assert.Equal(t, 55000.1, start)
	assert.InDelta(t, 55001.2+1200./86400, stop, 1e-9)
}

func TestReadFileRefusesRounding(t *testing.T) {
	s := strings.Replace(testYAML, "bins: {n: 8, min: -1, max: 1}",
		"bins: {n: 6, min: -1, max: 1}", 1)
	s = strings.Replace(s, "on:  [1, 2, 3, 4, 5, 6, 7, 8]", "on:  [1, 2, 3, 4, 5, 6]", 1)
	s = strings.Replace(s, "off: [4, 4, 4, 4, 2, 2, 2, 2]", "off: [4, 4, 4, 4, 2, 2]", 1)
	_, err := gfrun.ReadFile(writeTemp(t, "bad.yaml", s))
	assert.ErrorIs(t, err, gfbin.ErrWidth)
}

func TestValidateAlpha(t *testing.T) {
	s := strings.Replace(testYAML, "alpha: .2\n", "alpha: 0\n", 1)
	_, err := gfrun.ReadFile(writeTemp(t, "alpha.yaml", s))
	assert.ErrorIs(t, err, gfrun.ErrAlpha)
}

func TestValidateLengths(t *testing.T) {
	ds, err := gfrun.ReadFile(writeTemp(t, "crab.yaml", testYAML))
	require.NoError(t, err)
	r := ds.Runs[1]
	require.True(t, r.HasResponse())
	aeff := r.Aeff.Counts
	r.Aeff.Counts = aeff[:len(aeff)-1]
	assert.ErrorIs(t, ds.Validate(), gfrun.ErrLength)
	r.Aeff.Counts = aeff

	on := r.On.Counts
	r.On.Counts = append(on, 1)
	assert.ErrorIs(t, ds.Validate(), gfrun.ErrLength)
	r.On.Counts = on
	require.NoError(t, ds.Validate())

	// a malformed cache is refused on reading
	r.Aeff.Counts = aeff[:1]
	fn := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, gfrun.WriteCache(fn, ds))
	_, _, err = gfrun.ReadCache(fn)
	assert.ErrorIs(t, err, gfrun.ErrLength)
}

func TestCache(t *testing.T) {
	ds, err := gfrun.ReadFile(writeTemp(t, "crab.yaml", testYAML))
	require.NoError(t, err)
	fn := filepath.Join(t.TempDir(), "crab.gob")
	require.NoError(t, gfrun.WriteCache(fn, ds))

	got, created, err := gfrun.ReadCache(fn)
	require.NoError(t, err)
	assert.False(t, created.IsZero())
	assert.Equal(t, ds.Name, got.Name)
	assert.True(t, ds.Grid.Equal(got.Grid))
	require.Len(t, got.Runs, 2)
	for i, r := range ds.Runs {
		g := got.Runs[i]
		assert.Equal(t, r.ID, g.ID)
		assert.Equal(t, r.Live, g.Live)
		assert.Equal(t, r.On.Counts, g.On.Counts)
		assert.Equal(t, r.HasResponse(), g.HasResponse())
	}
	assert.Equal(t, ds.Runs[1].Migration.M, got.Runs[1].Migration.M)

	_, _, err = gfrun.ReadCache(writeTemp(t, "junk.gob", "not gob"))
	assert.Error(t, err)
}
