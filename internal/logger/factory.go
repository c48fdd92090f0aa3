package logger

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// Discard returns a logger that drops everything, handy in tests and benchmarks.
func Discard(prefix string) *log.Logger {
	return NewWithConfig(io.Discard, prefix, log.FatalLevel, false, false, log.TextFormatter)
}
