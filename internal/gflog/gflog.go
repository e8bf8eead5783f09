// Public domain.

// Package gflog holds the structured logger shared by gammafit packages.
//
// Numeric packages report diagnostics here rather than failing: unknown
// method ids, runs without instrument response, minimizer trouble.
package gflog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// L is the package logger.  Setup replaces it.
var L = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// Setup configures L.
//
// Level is a zerolog level name, format is "console" or "json".
// A nil w means stderr.
func Setup(level, format string, w io.Writer) error {
	lv, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}
	switch format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	L = zerolog.New(w).With().Timestamp().Logger().Level(lv)
	return nil
}

// Discard silences L.  Tests use it.
func Discard() {
	L = zerolog.Nop()
}
