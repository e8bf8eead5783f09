// Public domain.

package gfprog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soniakeys/sexagesimal"
	"github.com/urfave/cli/v2"

	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
	"github.com/soniakeys/gammafit/internal/gfsig"
	"github.com/soniakeys/gammafit/internal/gfsim"
)

func (p *prog) runsCommand() *cli.Command {
	return &cli.Command{
		Name:      "runs",
		Usage:     "summarize the runs of each dataset",
		ArgsUsage: "dataset...",
		Action: func(c *cli.Context) error {
			return p.process(c.Args().Slice(), p.runs)
		},
	}
}

func (p *prog) runs(fn string) (string, error) {
	ds, err := loadDataset(fn)
	if err != nil {
		return "", err
	}
	x, err := p.cfg.Exclusions()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %d runs, %d energy bins\n", fn, ds.Name, len(ds.Runs), ds.Grid.N())
	b.WriteString("   run  start              live s   dead  alpha  zenith        on     off   excess  sigma  A(1TeV) m²\n")
	var on, off, aOff float64
	for _, r := range ds.Runs {
		non, noff := r.On.Total(), r.Off.Total()
		mark := " "
		if x.Excluded(r) {
			mark = "x"
		} else {
			on += non
			off += noff
			aOff += r.Alpha * noff
		}
		var a1 float64
		if r.Aeff != nil {
			a1 = r.Aeff.At(0)
		}
		fmt.Fprintf(&b, "%s%5d  %s %7.0f %6.3f %6.3f  %.0d %7.0f %7.0f %8.1f %6.2f %10.4g\n",
			mark, r.ID, mjdDate(r.MJD), r.Live.Sec(), r.DeadFrac, r.Alpha,
			sexa.FmtAngle(r.Zenith), non, noff, non-r.Alpha*noff,
			gfsig.Significance(non, noff, r.Alpha, gfsig.LiMa17), a1)
	}
	if off > 0 {
		a := aOff / off
		fmt.Fprintf(&b, "  total excess %.1f  significance %.2f\n",
			on-a*off, gfsig.Significance(on, off, a, gfsig.LiMa17))
	}
	return b.String(), nil
}

func (p *prog) prepCommand() *cli.Command {
	return &cli.Command{
		Name:      "prep",
		Usage:     "read a YAML dataset and write its gob cache",
		ArgsUsage: "dataset.yaml cache.gob",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("prep takes an input and an output file")
			}
			ds, err := gfrun.ReadFile(c.Args().Get(0))
			if err != nil {
				return err
			}
			if err := gfrun.WriteCache(c.Args().Get(1), ds); err != nil {
				return err
			}
			fmt.Fprintf(p.w, "%s: %d runs cached\n", c.Args().Get(1), len(ds.Runs))
			return nil
		},
	}
}

func (p *prog) simCommand() *cli.Command {
	return &cli.Command{
		Name:      "sim",
		Usage:     "simulate a campaign of the configured spectrum into a gob cache",
		ArgsUsage: "cache.gob",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, overrides the config"},
			&cli.BoolFlag{Name: "asimov", Usage: "expected counts instead of Poisson draws"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("sim takes an output file")
			}
			sc, err := p.cfg.SimConfig()
			if err != nil {
				return err
			}
			s, err := p.cfg.Spectrum()
			if err != nil {
				return err
			}
			par := gfmodel.Init(s)
			if len(p.cfg.Sim.Params) > 0 {
				if len(p.cfg.Sim.Params) != s.NPar() {
					return fmt.Errorf("sim params: %d values, %s takes %d",
						len(p.cfg.Sim.Params), s.Name(), s.NPar())
				}
				par = p.cfg.Sim.Params
			}
			seed := p.cfg.Sim.Seed
			if c.IsSet("seed") {
				seed = c.Uint64("seed")
			}
			sim, err := gfsim.New(sc, seed)
			if err != nil {
				return err
			}
			var ds *gfrun.Dataset
			if c.Bool("asimov") || p.cfg.Sim.Asimov {
				ds = sim.Asimov(s, par)
			} else {
				ds = sim.Draw(s, par)
			}
			fn := c.Args().Get(0)
			if err := gfrun.WriteCache(fn, ds); err != nil {
				return err
			}
			fmt.Fprintf(p.w, "%s: %d runs of %s %s\n", fn, len(ds.Runs), s.Name(), fmtParams(par))
			return nil
		},
	}
}

func fmtParams(p []float64) string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = strconv.FormatFloat(v, 'g', 4, 64)
	}
	return "[" + strings.Join(s, " ") + "]"
}
