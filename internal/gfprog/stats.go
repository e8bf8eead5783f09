// Public domain.

package gfprog

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/soniakeys/gammafit/internal/gfsig"
)

// counts parses the three positional arguments non, noff, ratio.
func counts(c *cli.Context) (non, noff, ratio float64, err error) {
	if c.NArg() != 3 {
		return 0, 0, 0, fmt.Errorf("%s takes non, noff and alpha", c.Command.Name)
	}
	var v [3]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(c.Args().Get(i), 64); err != nil {
			return 0, 0, 0, err
		}
		if v[i] < 0 {
			return 0, 0, 0, fmt.Errorf("negative argument %s", c.Args().Get(i))
		}
	}
	return v[0], v[1], v[2], nil
}

func (p *prog) sigCommand() *cli.Command {
	return &cli.Command{
		Name:      "sig",
		Usage:     "detection significance of on/off counts",
		ArgsUsage: "non noff alpha",
		Action: func(c *cli.Context) error {
			non, noff, alpha, err := counts(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(p.w, "excess %.2f\n", non-alpha*noff)
			for _, f := range []gfsig.Formula{gfsig.Simple, gfsig.LiMa5, gfsig.LiMa17} {
				fmt.Fprintf(p.w, "%-7s %8.3f\n", f, gfsig.Significance(non, noff, alpha, f))
			}
			fmt.Fprintf(p.w, "TS      %8.3f\n", gfsig.BinTS(non, noff, alpha))
			return nil
		},
	}
}

func (p *prog) ulCommand() *cli.Command {
	return &cli.Command{
		Name:      "ul",
		Usage:     "upper limit on excess counts",
		ArgsUsage: "non noff alpha",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "cl", Value: .95, Usage: "confidence level"},
			&cli.StringFlag{Name: "method", Aliases: []string{"m"}, Value: gfsig.Helene.String(),
				Usage: "helene, neyman-gauss, neyman-poisson, feldman-cousins, profile-gauss or profile-poisson"},
		},
		Action: func(c *cli.Context) error {
			non, noff, ratio, err := counts(c)
			if err != nil {
				return err
			}
			m, ok := gfsig.ParseMethod(c.String("method"))
			if !ok {
				return fmt.Errorf("unknown upper limit method %q", c.String("method"))
			}
			cl := c.Float64("cl")
			if !(cl > 0 && cl < 1) {
				return fmt.Errorf("confidence level %g not in (0, 1)", cl)
			}
			fmt.Fprintf(p.w, "%s %g%% upper limit %.3f\n", m, cl*100,
				gfsig.UpperLimit(non, noff, ratio, cl, m))
			return nil
		},
	}
}
