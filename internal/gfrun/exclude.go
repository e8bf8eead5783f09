// Public domain.

package gfrun

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Window is a half-open MJD interval [Start, Stop).
type Window struct {
	Start, Stop float64
}

// Contains reports whether mjd is in w.
func (w Window) Contains(mjd float64) bool {
	return mjd >= w.Start && mjd < w.Stop
}

// TimeBins partitions [start, stop) into consecutive windows of the given
// width in days.  The last window may be short.
func TimeBins(start, stop, width float64) ([]Window, error) {
	if !(stop > start) || !(width > 0) {
		return nil, fmt.Errorf("gfrun: invalid time binning %g..%g width %g",
			start, stop, width)
	}
	var w []Window
	for t := start; t < stop; t += width {
		w = append(w, Window{t, min(t+width, stop)})
	}
	return w, nil
}

// Exclusions lists runs and MJD intervals removed from likelihood sums.
// The nil *Exclusions excludes nothing.
//
// Intervals are kept merged and sorted so lookups are binary searches.
type Exclusions struct {
	runs map[int]bool
	w    []Window
}

// NewExclusions returns an empty list.
func NewExclusions() *Exclusions {
	return &Exclusions{runs: map[int]bool{}}
}

// Clone returns an independent copy.  Clone of nil is an empty list.
func (x *Exclusions) Clone() *Exclusions {
	c := NewExclusions()
	if x == nil {
		return c
	}
	for id := range x.runs {
		c.runs[id] = true
	}
	c.w = append([]Window{}, x.w...)
	return c
}

// AddRun excludes a run by ID.
func (x *Exclusions) AddRun(id int) {
	x.runs[id] = true
}

// AddWindow excludes the MJD interval [start, stop).
func (x *Exclusions) AddWindow(start, stop float64) error {
	if !(stop > start) {
		return fmt.Errorf("gfrun: inverted exclusion interval %g..%g", start, stop)
	}
	// insert then merge
	i := sort.Search(len(x.w), func(i int) bool { return x.w[i].Start > start })
	x.w = append(x.w, Window{})
	copy(x.w[i+1:], x.w[i:])
	x.w[i] = Window{start, stop}
	m := x.w[:1]
	for _, w := range x.w[1:] {
		last := &m[len(m)-1]
		if w.Start <= last.Stop {
			last.Stop = max(last.Stop, w.Stop)
			continue
		}
		m = append(m, w)
	}
	x.w = m
	return nil
}

// Runs returns excluded run IDs in increasing order.
func (x *Exclusions) Runs() []int {
	if x == nil {
		return nil
	}
	ids := make([]int, 0, len(x.runs))
	for id := range x.runs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Windows returns a copy of the merged intervals.
func (x *Exclusions) Windows() []Window {
	if x == nil {
		return nil
	}
	return append([]Window{}, x.w...)
}

// Overlaps reports whether [start, stop) intersects an excluded interval.
func (x *Exclusions) Overlaps(start, stop float64) bool {
	if x == nil {
		return false
	}
	// first window ending after start
	i := sort.Search(len(x.w), func(i int) bool { return x.w[i].Stop > start })
	return i < len(x.w) && x.w[i].Start < stop
}

// Excluded reports whether run r is excluded by ID or because its time
// span touches an excluded interval.
func (x *Exclusions) Excluded(r *Run) bool {
	if x == nil {
		return false
	}
	if x.runs[r.ID] {
		return true
	}
	end := r.End()
	if end <= r.MJD {
		return x.Overlaps(r.MJD, r.MJD+1e-9)
	}
	return x.Overlaps(r.MJD, end)
}

// Len is the number of excluded runs plus intervals.
func (x *Exclusions) Len() int {
	if x == nil {
		return 0
	}
	return len(x.runs) + len(x.w)
}

// ParseExclusions reads exclusion lines from r.
//
// Recognized lines are
//
//	run <id>
//	mjd <start> <stop>
//
// Lines that do not parse, including comments and headings, are quietly
// ignored.  It is an error if no line parses.
func ParseExclusions(r io.Reader) (*Exclusions, error) {
	x := NewExclusions()
	s := bufio.NewScanner(r)
	for s.Scan() {
		f := strings.Fields(s.Text())
		switch {
		case len(f) == 2 && f[0] == "run":
			id, err := strconv.Atoi(f[1])
			if err != nil {
				continue
			}
			x.AddRun(id)
		case len(f) == 3 && f[0] == "mjd":
			a, err1 := strconv.ParseFloat(f[1], 64)
			b, err2 := strconv.ParseFloat(f[2], 64)
			if err1 != nil || err2 != nil {
				continue
			}
			x.AddWindow(a, b) // inverted intervals are ignored like other bad lines
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if x.Len() == 0 {
		return nil, fmt.Errorf("gfrun: no exclusions readable")
	}
	return x, nil
}

// ReadExclusions reads an exclusion list file.
func ReadExclusions(fn string) (*Exclusions, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	x, err := ParseExclusions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return x, nil
}
