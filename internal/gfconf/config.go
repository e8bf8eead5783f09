// Public domain.

// Package gfconf reads the gammafit configuration file.
//
// The file is YAML.  Missing values take the defaults in the struct tags,
// then the whole is validated.  An absent file is the default
// configuration.
package gfconf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/soniakeys/unit"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/gammafit/internal/gfbin"
	"github.com/soniakeys/gammafit/internal/gffit"
	"github.com/soniakeys/gammafit/internal/gflike"
	"github.com/soniakeys/gammafit/internal/gfmodel"
	"github.com/soniakeys/gammafit/internal/gfrun"
	"github.com/soniakeys/gammafit/internal/gfsim"
)

// DefaultFile is read when no file is named.
const DefaultFile = "gammafit.yaml"

type Config struct {
	Binning    Binning    `yaml:"binning"`
	Fit        Fit        `yaml:"fit"`
	EBL        EBL        `yaml:"ebl"`
	Points     Points     `yaml:"points"`
	LightCurve LightCurve `yaml:"lightcurve"`
	Exclude    Exclude    `yaml:"exclude"`
	Sim        Sim        `yaml:"sim"`
	Log        Log        `yaml:"log"`
}

// Binning selects the reconstructed bins that enter the likelihood.
type Binning struct {
	EMin float64 `yaml:"emin" validate:"gte=0"` // TeV
	EMax float64 `yaml:"emax" validate:"gte=0"` // TeV, zero for no limit

	// Negative disables the bias cut.
	MaxBias float64 `yaml:"max_bias" default:"0.25"`

	StopOn    bool `yaml:"stop_on"`
	StopOff   bool `yaml:"stop_off"`
	StopModel bool `yaml:"stop_model"`
}

type Fit struct {
	Model         string          `yaml:"model" default:"pl" validate:"oneof=pl ecpl cpl lp lpc sec bpl"`
	E0            float64         `yaml:"e0" default:"1" validate:"gt=0"`
	Init          []float64       `yaml:"init"`
	Fixed         map[int]float64 `yaml:"fixed"`
	Method        string          `yaml:"method" default:"migrad" validate:"oneof=migrad simplex"`
	MaxEval       int             `yaml:"max_eval" default:"20000" validate:"gte=100"`
	Minos         bool            `yaml:"minos"`
	Contours      [][]int         `yaml:"contours" validate:"dive,len=2,dive,gte=0"`
	ContourPoints int             `yaml:"contour_points" default:"20" validate:"gte=3"`
}

// EBL is an optical depth table.  Energies in TeV, increasing.
type EBL struct {
	Energy []float64 `yaml:"energy" validate:"omitempty,min=2,dive,gt=0"`
	Tau    []float64 `yaml:"tau" validate:"dive,gte=0"`
}

type Points struct {
	KeepFailed bool    `yaml:"keep_failed"`
	ULTS       float64 `yaml:"ul_ts" default:"4" validate:"gte=0"`
	Band       int     `yaml:"band" default:"100" validate:"gte=2"`
}

type LightCurve struct {
	Width    float64 `yaml:"width" default:"1" validate:"gt=0"` // days
	Start    float64 `yaml:"start" validate:"gte=0"`
	Stop     float64 `yaml:"stop" validate:"gte=0"`
	FluxEMin float64 `yaml:"flux_emin" validate:"gte=0"`
	FluxEMax float64 `yaml:"flux_emax" default:"100" validate:"gt=0"`
	ULSigma  float64 `yaml:"ul_sigma" default:"2" validate:"gte=0"`
}

// Exclude lists runs and MJD windows to leave out, and optionally a file
// in the exclusion list format.
type Exclude struct {
	File    string      `yaml:"file"`
	Runs    []int       `yaml:"runs"`
	Windows [][]float64 `yaml:"windows" validate:"dive,len=2"`
}

type Sim struct {
	Seed     uint64    `yaml:"seed" default:"1"`
	Asimov   bool      `yaml:"asimov"`
	Params   []float64 `yaml:"params"`
	Bins     int       `yaml:"bins" default:"12" validate:"gte=1"`
	LogEMin  float64   `yaml:"log_emin" default:"-0.6"`
	LogEMax  float64   `yaml:"log_emax" default:"1.2" validate:"gtfield=LogEMin"`
	TrueBins int       `yaml:"true_bins" default:"36" validate:"gte=1"`
	TrueMin  float64   `yaml:"true_log_emin" default:"-0.9"`
	TrueMax  float64   `yaml:"true_log_emax" default:"1.5" validate:"gtfield=TrueMin"`

	AreaMax    float64 `yaml:"area_max" default:"100000" validate:"gt=0"` // m²
	ETurnOn    float64 `yaml:"e_turn_on" default:"0.3" validate:"gte=0"`
	Resolution float64 `yaml:"resolution" default:"0.07" validate:"gt=0"`
	Bias       float64 `yaml:"bias"`

	Runs      int     `yaml:"runs" default:"10" validate:"gte=1"`
	MJD0      float64 `yaml:"mjd0" default:"56000"`
	Cadence   float64 `yaml:"cadence" default:"1" validate:"gte=0"`
	Live      float64 `yaml:"live" default:"1800" validate:"gt=0"` // s
	DeadFrac  float64 `yaml:"dead_frac" default:"0.1" validate:"gte=0,lt=1"`
	Alpha     float64 `yaml:"alpha" default:"0.2" validate:"gt=0"`
	Threshold float64 `yaml:"threshold" default:"0.2" validate:"gte=0"`
	BkgRate   float64 `yaml:"bkg_rate" default:"0.05" validate:"gte=0"`
	BkgIndex  float64 `yaml:"bkg_index" default:"-1.5"`
}

type Log struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

var validate = validator.New()

// Default returns the configuration of an empty file.
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(err)
	}
	return c
}

// Parse decodes YAML, fills defaults and validates.  Unknown keys are
// errors.
func Parse(r io.Reader) (*Config, error) {
	c := &Config{}
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("gfconf: %w", err)
	}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("gfconf: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Read parses file fn.  If fn is empty DefaultFile is tried and its
// absence gives the defaults.
func Read(fn string) (*Config, error) {
	name := fn
	if name == "" {
		name = DefaultFile
	}
	b, err := os.ReadFile(name)
	if err != nil {
		if fn == "" && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	c, err := Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// Validate checks field constraints and the relations between fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, len(ve))
			for i, fe := range ve {
				msgs[i] = describe(fe)
			}
			return fmt.Errorf("gfconf: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("gfconf: %w", err)
	}
	switch {
	case c.Binning.EMax > 0 && c.Binning.EMax <= c.Binning.EMin:
		return fmt.Errorf("gfconf: binning emax %g not above emin %g", c.Binning.EMax, c.Binning.EMin)
	case len(c.EBL.Tau) != len(c.EBL.Energy):
		return fmt.Errorf("gfconf: ebl has %d energies, %d optical depths", len(c.EBL.Energy), len(c.EBL.Tau))
	case c.LightCurve.Stop > 0 && c.LightCurve.Stop <= c.LightCurve.Start:
		return fmt.Errorf("gfconf: light curve stop %g not after start %g", c.LightCurve.Stop, c.LightCurve.Start)
	}
	for _, w := range c.Exclude.Windows {
		if w[1] <= w[0] {
			return fmt.Errorf("gfconf: exclusion window %g..%g inverted", w[0], w[1])
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	f := fe.Namespace()
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", f, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have %s values", f, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s values", f, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	}
	return fmt.Sprintf("%s failed validation: %s", f, fe.Tag())
}

// Spectrum builds the fit model, absorbed if an EBL table is given.
func (c *Config) Spectrum() (gfmodel.Spectrum, error) {
	k, ok := gfmodel.Parse(c.Fit.Model)
	if !ok {
		return nil, fmt.Errorf("gfconf: unknown model %q", c.Fit.Model)
	}
	m, err := gfmodel.New(k, c.Fit.E0, c.Binning.EMin, c.Binning.EMax)
	if err != nil {
		return nil, err
	}
	if len(c.EBL.Energy) == 0 {
		return m, nil
	}
	t, err := gfmodel.NewOpacityTable(c.EBL.Energy, c.EBL.Tau)
	if err != nil {
		return nil, err
	}
	return &gfmodel.Absorbed{Base: m, Opacity: t}, nil
}

// Init returns the configured initial values for s, nil for the model
// defaults.
func (c *Config) Init(s gfmodel.Spectrum) ([]float64, error) {
	if len(c.Fit.Init) == 0 {
		return nil, nil
	}
	if len(c.Fit.Init) != s.NPar() {
		return nil, fmt.Errorf("%w: init has %d values, %s takes %d",
			gffit.ErrParamCount, len(c.Fit.Init), s.Name(), s.NPar())
	}
	return append([]float64{}, c.Fit.Init...), nil
}

// MaxBias is the folding bias cut, zero when disabled.
func (c *Config) MaxBias() float64 {
	return max(c.Binning.MaxBias, 0)
}

func (c *Config) LikeOptions() gflike.Options {
	b := &c.Binning
	return gflike.Options{EMin: b.EMin, EMax: b.EMax,
		StopOn: b.StopOn, StopOff: b.StopOff, StopModel: b.StopModel}
}

func (c *Config) FitOptions() gffit.Options {
	o := gffit.Options{
		Method:        c.Fit.Method,
		MaxEval:       c.Fit.MaxEval,
		MinosAll:      c.Fit.Minos,
		ContourPoints: c.Fit.ContourPoints,
		Fixed:         map[int]float64{},
	}
	for k, v := range c.Fit.Fixed {
		o.Fixed[k] = v
	}
	for _, p := range c.Fit.Contours {
		o.Contours = append(o.Contours, [2]int{p[0], p[1]})
	}
	return o
}

func (c *Config) PointOptions() gffit.PointOptions {
	return gffit.PointOptions{KeepFailed: c.Points.KeepFailed, ULTS: c.Points.ULTS}
}

func (c *Config) VarOptions() gffit.VarOptions {
	l := &c.LightCurve
	return gffit.VarOptions{Width: l.Width, Start: l.Start, Stop: l.Stop,
		FluxEMin: l.FluxEMin, FluxEMax: l.FluxEMax, ULSigma: l.ULSigma}
}

// Exclusions merges the exclusion file with the listed runs and windows.
func (c *Config) Exclusions() (*gfrun.Exclusions, error) {
	x := gfrun.NewExclusions()
	if fn := c.Exclude.File; fn != "" {
		var err error
		if x, err = gfrun.ReadExclusions(fn); err != nil {
			return nil, err
		}
	}
	for _, id := range c.Exclude.Runs {
		x.AddRun(id)
	}
	for _, w := range c.Exclude.Windows {
		if err := x.AddWindow(w[0], w[1]); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// SimConfig is the simulated campaign.
func (c *Config) SimConfig() (gfsim.Config, error) {
	s := &c.Sim
	g := gfsim.Default()
	var err error
	if g.Grid, err = gfbin.NewLog(s.Bins, s.LogEMin, s.LogEMax); err != nil {
		return g, err
	}
	if g.True, err = gfbin.NewLog(s.TrueBins, s.TrueMin, s.TrueMax); err != nil {
		return g, err
	}
	g.Response = gfsim.Response{AreaMax: s.AreaMax, ETurnOn: s.ETurnOn,
		Resolution: s.Resolution, Bias: s.Bias}
	g.MaxBias = c.MaxBias()
	g.Runs = s.Runs
	g.MJD0 = s.MJD0
	g.Cadence = s.Cadence
	g.Live = unit.Time(s.Live)
	g.DeadFrac = s.DeadFrac
	g.Alpha = s.Alpha
	g.Threshold = s.Threshold
	g.BkgRate = s.BkgRate
	g.BkgIndex = s.BkgIndex
	return g, g.Check()
}
