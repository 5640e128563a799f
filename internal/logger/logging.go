// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options controls the process-wide logger.
type Options struct {
	Debug bool
	// Level is a charm level name ("debug", "info", "warn", "error").
	// Debug wins over Level.
	Level string
	// File, when set, receives a copy of every line next to stderr.
	File string
}

// Setup configures the default charm logger. Output goes to stderr because
// stdout carries IPC frames. The returned closer releases the log file.
func Setup(opts Options) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return closer, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}

	log.SetOutput(out)
	log.SetLevel(log.WarnLevel)
	if opts.Level != "" {
		if lvl, err := log.ParseLevel(opts.Level); err == nil {
			log.SetLevel(lvl)
		} else {
			log.Warnf("Unknown log level %q, keeping %s", opts.Level, log.GetLevel())
		}
	}
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	}
	return closer, nil
}

// New creates a prefixed charm log sharing the default logger's level.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
