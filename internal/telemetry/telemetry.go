// Package telemetry provides the leveled, colored logger used across
// thebox in place of ad hoc fmt.Printf calls.
package telemetry

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the logging handle every package takes a dependency on.
type Logger = *log.Logger

// New builds a logger writing to w with the given level and a prefix
// identifying the subsystem, e.g. New(os.Stderr, log.InfoLevel, "orchestrator").
func New(w io.Writer, level log.Level, prefix string) Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	l.SetLevel(level)
	return l
}

// Default returns a logger writing to stderr at info level, used by
// callers that have not been given an explicit logger (tests, small
// tools).
func Default(prefix string) Logger {
	return New(os.Stderr, log.InfoLevel, prefix)
}

// Discard returns a logger that produces no output, used by tests
// that want a real *log.Logger without console noise.
func Discard(prefix string) Logger {
	return New(io.Discard, log.InfoLevel, prefix)
}
