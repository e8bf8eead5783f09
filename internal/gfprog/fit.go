// Public domain.

package gfprog

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/urfave/cli/v2"

	"github.com/soniakeys/gammafit/internal/gffit"
	"github.com/soniakeys/gammafit/internal/gffold"
	"github.com/soniakeys/gammafit/internal/gflike"
	"github.com/soniakeys/gammafit/internal/gflog"
	"github.com/soniakeys/gammafit/internal/gfrun"
)

// loadDataset reads a gob cache by extension, otherwise YAML.
func loadDataset(fn string) (*gfrun.Dataset, error) {
	if strings.EqualFold(filepath.Ext(fn), ".gob") {
		ds, created, err := gfrun.ReadCache(fn)
		if err != nil {
			return nil, err
		}
		gflog.L.Debug().Str("file", fn).Time("created", created).Msg("cache")
		return ds, nil
	}
	return gfrun.ReadFile(fn)
}

// fitter builds a Fitter for ds from the configuration.
func (p *prog) fitter(ds *gfrun.Dataset) (*gffit.Fitter, error) {
	x, err := p.cfg.Exclusions()
	if err != nil {
		return nil, err
	}
	s, err := p.cfg.Spectrum()
	if err != nil {
		return nil, err
	}
	e, err := gflike.New(gffold.Prepare(ds, p.cfg.MaxBias()), x, p.cfg.LikeOptions())
	if err != nil {
		return nil, err
	}
	return &gffit.Fitter{Engine: e, Spectrum: s, Options: p.cfg.FitOptions()}, nil
}

// fit loads fn and fits it.
func (p *prog) fit(fn string) (*gffit.Fitter, *gffit.Session, error) {
	ds, err := loadDataset(fn)
	if err != nil {
		return nil, nil, err
	}
	f, err := p.fitter(ds)
	if err != nil {
		return nil, nil, err
	}
	init, err := p.cfg.Init(f.Spectrum)
	if err != nil {
		return nil, nil, err
	}
	s, err := f.Fit(init)
	return f, s, err
}

func mjdDate(mjd float64) string {
	return julian.JDToTime(mjd + 2400000.5).Format("2006-01-02 15:04")
}

// report formats the fit result.
func report(fn string, f *gffit.Fitter, s *gffit.Session) string {
	var b strings.Builder
	ds := f.Engine.Dataset()
	fmt.Fprintf(&b, "%s: %s, %d runs, %d active\n", fn, ds.Name, len(ds.Runs), len(f.Engine.Active()))
	if start, stop, ok := ds.Span(); ok {
		fmt.Fprintf(&b, "  span      %s .. %s\n", mjdDate(start), mjdDate(stop))
	}
	fmt.Fprintf(&b, "  model     %s (%s), E0 %g TeV, range %.3g..%.3g TeV\n",
		s.Spectrum.Name(), s.Spectrum.Description(), s.Spectrum.Pivot(), s.EMin, s.EMax)
	fmt.Fprintf(&b, "  session   %s  status %s  calls %d\n", s.ID, s.Status, s.NCalls)
	names := s.Spectrum.ParamNames()
	for i, v := range s.Values {
		if _, fixed := s.Fixed[i]; fixed {
			fmt.Fprintf(&b, "  %-8s %12.5g  fixed\n", names[i], v)
			continue
		}
		fmt.Fprintf(&b, "  %-8s %12.5g ± %-10.3g", names[i], v, s.Errors[i])
		if s.ErrLo[i] != 0 || s.ErrHi[i] != 0 {
			fmt.Fprintf(&b, " (%+.3g %+.3g)", s.ErrLo[i], s.ErrHi[i])
		}
		b.WriteByte('\n')
	}
	c, ndf := s.Chi2()
	fmt.Fprintf(&b, "  logL %.4f  Λ %.2f / %d  p %.3g\n", s.LogL, c, ndf, s.Prob())
	fmt.Fprintf(&b, "  decorrelation energy %.3g TeV\n", s.DecorrelationEnergy())
	for _, ct := range s.Contours {
		fmt.Fprintf(&b, "  contour %s-%s:", names[ct.I], names[ct.J])
		for _, pt := range ct.Points {
			fmt.Fprintf(&b, " (%.4g,%.4g)", pt[0], pt[1])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (p *prog) fitCommand() *cli.Command {
	return &cli.Command{
		Name:      "fit",
		Usage:     "fit the configured spectrum to each dataset",
		ArgsUsage: "dataset...",
		Action: func(c *cli.Context) error {
			return p.process(c.Args().Slice(), func(fn string) (string, error) {
				f, s, err := p.fit(fn)
				if err != nil {
					return "", err
				}
				return report(fn, f, s), nil
			})
		},
	}
}

func (p *prog) pointsCommand() *cli.Command {
	return &cli.Command{
		Name:      "points",
		Usage:     "spectral points from normalization refits per energy bin",
		ArgsUsage: "dataset...",
		Action: func(c *cli.Context) error {
			return p.process(c.Args().Slice(), func(fn string) (string, error) {
				f, s, err := p.fit(fn)
				if err != nil {
					return "", err
				}
				pts, err := gffit.SpectralPoints(f, s, p.cfg.PointOptions())
				if err != nil {
					return "", err
				}
				var b strings.Builder
				b.WriteString(report(fn, f, s))
				b.WriteString("   E TeV       dN/dE     err-      err+        UL      TS     on      off  status\n")
				for _, pt := range pts {
					fmt.Fprintf(&b, "%8.3f %11.4g %9.3g %9.3g %9.3g %7.1f %6.0f %8.0f  %s\n",
						pt.E, pt.Flux, pt.ErrLo, pt.ErrHi, pt.UL, pt.TS, pt.On, pt.Off, pt.Status)
				}
				return b.String(), nil
			})
		},
	}
}

func (p *prog) bandCommand() *cli.Command {
	return &cli.Command{
		Name:      "band",
		Usage:     "1σ confidence band of the fitted spectrum",
		ArgsUsage: "dataset...",
		Action: func(c *cli.Context) error {
			return p.process(c.Args().Slice(), func(fn string) (string, error) {
				f, s, err := p.fit(fn)
				if err != nil {
					return "", err
				}
				var b strings.Builder
				b.WriteString(report(fn, f, s))
				for _, bp := range gffit.Band(s, p.cfg.Points.Band) {
					fmt.Fprintf(&b, "%10.4g %12.5g %12.5g\n", bp.E, bp.DNdE, bp.Sigma)
				}
				return b.String(), nil
			})
		},
	}
}

func (p *prog) profileCommand() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "likelihood profile of one parameter",
		ArgsUsage: "dataset...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "param", Aliases: []string{"i"}, Usage: "parameter index"},
			&cli.Float64Flag{Name: "width", Value: 3, Usage: "scan half width in standard errors"},
			&cli.IntFlag{Name: "n", Value: 21, Usage: "scan points"},
			&cli.BoolFlag{Name: "refit", Usage: "refit the other parameters at each point"},
		},
		Action: func(c *cli.Context) error {
			i, n := c.Int("param"), c.Int("n")
			width, refit := c.Float64("width"), c.Bool("refit")
			if n < 2 {
				return fmt.Errorf("profile needs at least 2 points")
			}
			return p.process(c.Args().Slice(), func(fn string) (string, error) {
				f, s, err := p.fit(fn)
				if err != nil {
					return "", err
				}
				if i < 0 || i >= len(s.Values) {
					return "", fmt.Errorf("%w: parameter %d", gffit.ErrParamCount, i)
				}
				h := width * s.Errors[i]
				if !(h > 0) {
					h = math.Abs(s.Values[i])/10 + 1e-12
				}
				vals := make([]float64, n)
				for k := range vals {
					vals[k] = s.Values[i] - h + 2*h*float64(k)/float64(n-1)
				}
				var d []float64
				if refit {
					if d, err = gffit.ProfileMin(f, s, i, vals); err != nil {
						return "", err
					}
				} else {
					d = gffit.Profile(f, s, i, vals)
				}
				var b strings.Builder
				b.WriteString(report(fn, f, s))
				for k, v := range vals {
					fmt.Fprintf(&b, "%14.6g %12.4f\n", v, -2*d[k])
				}
				return b.String(), nil
			})
		},
	}
}

func (p *prog) lcCommand() *cli.Command {
	return &cli.Command{
		Name:      "lc",
		Usage:     "light curve and variability index",
		ArgsUsage: "dataset...",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "width", Usage: "time bin width in days, overrides the config"},
		},
		Action: func(c *cli.Context) error {
			vo := p.cfg.VarOptions()
			if c.IsSet("width") {
				vo.Width = c.Float64("width")
			}
			return p.process(c.Args().Slice(), func(fn string) (string, error) {
				f, s, err := p.fit(fn)
				if err != nil {
					return "", err
				}
				v, err := gffit.VariabilityIndex(f, s, vo)
				if err != nil {
					return "", err
				}
				var b strings.Builder
				b.WriteString(report(fn, f, s))
				fmt.Fprintf(&b, "  variability TS %.2f / %d  p %.3g  (%s)\n", v.TS, v.NDF, v.Prob, v.Status)
				b.WriteString("  date              runs        flux      err-      err+        UL    sigma\n")
				for _, pt := range v.Points {
					fmt.Fprintf(&b, "  %s %5d %11.4g %9.3g %9.3g %9.3g %8.2f\n",
						mjdDate(pt.MJD), pt.Runs, pt.Flux, pt.ErrLo, pt.ErrHi, pt.UL, pt.Sigma)
				}
				return b.String(), nil
			})
		},
	}
}
