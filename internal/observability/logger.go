// Package observability carries the gateway's logging, metrics, and health
// surfaces.
package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	base        zerolog.Logger
	initialized bool
)

// InitLogger configures the package-level logger. level is one of
// debug/info/warn/error; pretty switches to a human console writer.
func InitLogger(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	} else {
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	initialized = true
}

// Logger returns the process-wide base logger, initializing it with
// sensible defaults if InitLogger was never called.
func Logger() zerolog.Logger {
	if !initialized {
		InitLogger("info", false)
	}
	return base
}

// WithCall returns a logger enriched with the call's correlation id.
func WithCall(callID string) zerolog.Logger {
	return Logger().With().Str("call_id", callID).Logger()
}
