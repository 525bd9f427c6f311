// Package logger provides the process-wide zerolog logger. Initialise once at
// startup with Init, then hand sub-loggers to components via With.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Unrecognised values fall back to "info".
	Level string
	// Pretty switches from JSON to human-friendly console output.
	Pretty bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	mu       sync.Mutex
	instance = zerolog.Nop()
)

// Init builds the singleton logger. Later calls replace the instance, which
// tests use to capture output.
func Init(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl := parseLevel(opts.Level)
	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()

	mu.Lock()
	instance = l
	mu.Unlock()
	return l
}

// Get returns the singleton logger; a no-op logger before Init.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return instance
}

// With returns the singleton logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
