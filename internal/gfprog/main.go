// Public domain.

// Package gfprog is the gammafit command.
package gfprog

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/soniakeys/exit"
	"github.com/urfave/cli/v2"

	"github.com/soniakeys/gammafit/internal/gfconf"
	"github.com/soniakeys/gammafit/internal/gflog"
)

const versionString = "gammafit version 0.1 Go source."
const copyrightString = "Public domain."

func Main() {
	defer exit.Handler()
	if err := App().Run(os.Args); err != nil {
		exit.Log(err)
	}
}

// prog is state shared by the commands, set up before any runs.
type prog struct {
	cfg *gfconf.Config
	w   io.Writer
}

// App returns the command line application.
func App() *cli.App {
	p := &prog{}
	return &cli.App{
		Name:    "gammafit",
		Usage:   "forward folding spectral fits of on/off gamma-ray data",
		Version: versionString + " " + copyrightString,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration `file`, default " + gfconf.DefaultFile + " if present",
				EnvVars: []string{"GAMMAFIT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error; overrides the config",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "console or json; overrides the config",
			},
		},
		Before: p.setup,
		Commands: []*cli.Command{
			p.fitCommand(),
			p.pointsCommand(),
			p.bandCommand(),
			p.profileCommand(),
			p.lcCommand(),
			p.runsCommand(),
			p.prepCommand(),
			p.simCommand(),
			p.sigCommand(),
			p.ulCommand(),
		},
	}
}

func (p *prog) setup(c *cli.Context) error {
	cfg, err := gfconf.Read(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if err := gflog.Setup(cfg.Log.Level, cfg.Log.Format, c.App.ErrWriter); err != nil {
		return err
	}
	p.cfg = cfg
	p.w = c.App.Writer
	if p.w == nil {
		p.w = os.Stdout
	}
	return nil
}

type fileSeq struct {
	fn  string
	rch chan result
}

type result struct {
	s   string
	err error
}

// process runs job on each file concurrently and writes results in file
// order.  The first error stops output and is returned.
func (p *prog) process(files []string, job func(fn string) (string, error)) error {
	if len(files) == 0 {
		return fmt.Errorf("no dataset files")
	}
	// prCh keeps results in submission order.  It is buffered so a fast
	// worker can drop off a result without waiting for workers ahead of
	// it.
	maxWorkers := runtime.GOMAXPROCS(0)
	prCh := make(chan chan result, maxWorkers*2)
	seqCh := make(chan *fileSeq)

	// done releases the dispatcher when an error ends printing early.
	done := make(chan struct{})
	defer close(done)

	// dispatcher.  each file gets a return channel, a ticket for picking
	// up its result, queued for printing.
	go func() {
		defer close(prCh)
		defer close(seqCh)
		for _, fn := range files {
			rch := make(chan result, 1)
			select {
			case seqCh <- &fileSeq{fn, rch}:
			case <-done:
				return
			}
			select {
			case prCh <- rch:
			case <-done:
				return
			}
		}
	}()

	// workers are started only as the dispatcher calls for them.
	go func() {
		for n := 0; n < maxWorkers; n++ {
			f, ok := <-seqCh
			if !ok {
				return
			}
			go worker(job, f, seqCh)
		}
	}()

	for rch := range prCh {
		r := <-rch
		if r.err != nil {
			return r.err
		}
		fmt.Fprint(p.w, r.s)
	}
	return nil
}

func worker(job func(string) (string, error), f *fileSeq, seqCh chan *fileSeq) {
	for ok := true; ok; f, ok = <-seqCh {
		s, err := job(f.fn)
		if err != nil {
			err = fmt.Errorf("%s: %w", f.fn, err)
		}
		f.rch <- result{s, err} // buffered
	}
}
