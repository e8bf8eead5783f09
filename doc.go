/*
Command gammafit fits spectral models to on/off gamma-ray observations by
forward folding through the instrument response.

Contents

Version 0.1

  Program overview
  Installing
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Input is a dataset of observation runs.  Each run carries on and off region
counts binned in reconstructed energy, an on/off exposure ratio alpha, live
time, an effective area histogram in true energy and an energy migration
matrix.  Output is a fitted spectrum with errors, and optionally spectral
points, a confidence band, a likelihood profile or a light curve with a
variability index.

Sample run:

  gammafit sim --asimov crab.gob
  gammafit fit crab.gob

The first command simulates a ten run campaign of the configured spectrum
and writes expected counts to crab.gob.  The second fits it and prints
something like

  crab.gob: sim, 10 runs, 10 active
    span      2012-03-14 00:00 .. 2012-03-23 00:30
    model     pl (power law), E0 1 TeV, range 0.251..15.8 TeV
    session   6f1c...  status ok  calls 87
    N0                1e-11 ± 2.1e-13
    Gamma              -2.5 ± 0.0187
    logL -41.2203  Λ 0.00 / 10  p 1
    decorrelation energy 1.12 TeV


Installing

You need Go 1.24 or later.  Then type

  go install github.com/soniakeys/gammafit@latest


Command line usage

  gammafit [-c file] [--log-level level] [--log-format fmt] command args

Commands:

  fit       fit the configured spectrum to each dataset
  points    spectral points from normalization refits per energy bin
  band      1σ confidence band of the fitted spectrum
  profile   likelihood profile of one parameter
  lc        light curve and variability index
  runs      summarize the runs of each dataset
  prep      read a YAML dataset and write its gob cache
  sim       simulate a campaign into a gob cache
  sig       detection significance of on/off counts
  ul        upper limit on excess counts

Commands taking datasets accept several.  They are processed concurrently
and results are printed in command line order.


Configuration

Settings come from the YAML file named with -c or the GAMMAFIT_CONFIG
environment variable, otherwise from gammafit.yaml in the current
directory if present.  Unset values take defaults.  Unknown keys are
errors.  Sections are binning, fit, ebl, points, lightcurve, exclude, sim
and log.  For example,

  binning:
    emin: 0.3       # TeV
    emax: 20
    max_bias: 0.25  # negative disables the energy bias cut
  fit:
    model: ecpl     # pl, ecpl, cpl, lp, lpc, sec or bpl
    e0: 1
    fixed: {2: 8}
    minos: true
  exclude:
    runs: [3, 5]
    windows: [[56001, 56002]]


File formats

Datasets are YAML, or a gob cache written by prep or sim.  A file name
ending in .gob is read as a cache, anything else as YAML.

Run exclusion files hold lines "run <id>" or "mjd <start> <stop>".  Other
lines are ignored.


Algorithm outline

1.  Each run's effective area is multiplied by its dead-time corrected live
time, and its migration matrix is cut to true energy columns where the
relative energy bias is within max_bias.

2.  The model is integrated over each true energy bin, folded through the
migration matrix and compared to the counts of each reconstructed energy
bin with the on/off Poisson likelihood.  The unknown background of each
bin is profiled out in closed form.

3.  The negative log likelihood is minimized with a simplex stage followed
by a quasi-Newton stage.  Errors come from the inverse Hessian, and
asymmetric errors from scanning the profile likelihood.

4.  Spectral points refit only the normalization with the fitted shape,
one reconstructed energy bin at a time.  Light curves do the same per time
window, and the variability index sums the likelihood gain of free window
normalizations over a common one.

-------------
Public domain.
*/
package main
