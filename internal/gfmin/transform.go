// Public domain.

package gfmin

import "math"

// Bounded parameters use the transforms of the Minuit package, with one
// sided bounds measured in units of the parameter step s so that values
// tiny compared to one keep their precision:
//
//	both bounds   x = a + (b−a)(sin u + 1)/2
//	lower only    x = a + s(sqrt(u² + 1) − 1)
//	upper only    x = b − s(sqrt(u² + 1) − 1)

func (p *Param) hasMin() bool { return !math.IsInf(p.Min, -1) }
func (p *Param) hasMax() bool { return !math.IsInf(p.Max, 1) }

func (p *Param) unit() float64 {
	if p.Step > 0 {
		return p.Step
	}
	return 1
}

// ext maps internal u to the external value.
func (p *Param) ext(u float64) float64 {
	a, b := p.Min, p.Max
	switch {
	case p.hasMin() && p.hasMax():
		return a + (b-a)*(math.Sin(u)+1)/2
	case p.hasMin():
		return a + p.unit()*(math.Sqrt(u*u+1)-1)
	case p.hasMax():
		return b - p.unit()*(math.Sqrt(u*u+1)-1)
	}
	return u
}

// intern maps an external value to internal u, clamping it inside
// bounds.
func (p *Param) intern(x float64) float64 {
	a, b := p.Min, p.Max
	switch {
	case p.hasMin() && p.hasMax():
		s := 2*(x-a)/(b-a) - 1
		return math.Asin(math.Max(-1, math.Min(1, s)))
	case p.hasMin():
		d := math.Max(x-a, 0)/p.unit() + 1
		return math.Sqrt(d*d - 1)
	case p.hasMax():
		d := math.Max(b-x, 0)/p.unit() + 1
		return math.Sqrt(d*d - 1)
	}
	return x
}

// dext is dx/du.
func (p *Param) dext(u float64) float64 {
	switch {
	case p.hasMin() && p.hasMax():
		return (p.Max - p.Min) * math.Cos(u) / 2
	case p.hasMin():
		return p.unit() * u / math.Sqrt(u*u+1)
	case p.hasMax():
		return -p.unit() * u / math.Sqrt(u*u+1)
	}
	return 1
}

// scale is the internal length of one external step at x.  Dividing by it
// makes internal coordinates of order one.
func (p *Param) scale(x float64) float64 {
	if p.Step > 0 {
		u := p.intern(x)
		for _, d := range []float64{p.Step, -p.Step} {
			if s := math.Abs(p.intern(x+d) - u); s > 0 && !math.IsNaN(s) {
				return s
			}
		}
	}
	return 1
}
