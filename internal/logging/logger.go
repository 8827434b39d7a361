// Package logging builds the structured loggers used across buildlens.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Prefix is attached to every logger built by New.
const Prefix = "buildlens"

// New creates a logger writing to w at the named level
// (debug, info, warn, error, fatal).
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
		Prefix:          Prefix,
	}), nil
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return log.New(io.Discard)
}

// Component returns a child logger for a named component.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		return Nop()
	}
	return l.WithPrefix(Prefix + "/" + name)
}
