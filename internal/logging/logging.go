// Package logging builds the logrus loggers used for engine diagnostics
// and the optional per-request log file.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options selects verbosity and destinations.
type Options struct {
	Level     string // trace, debug, info, warn, error; default warn
	Verbosity int    // -v count; raises the level when Level is unset
	NoColor   bool
	Output    io.Writer // default os.Stderr
}

// New returns a diagnostics logger.
func New(opts Options) (*logrus.Logger, error) {
	l := logrus.New()
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stderr)
	}
	l.SetFormatter(&logrus.TextFormatter{
		DisableLevelTruncation: true,
		DisableTimestamp:       true,
		DisableColors:          opts.NoColor,
	})

	switch {
	case opts.Level != "":
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		l.SetLevel(lvl)
	case opts.Verbosity > 1:
		l.SetLevel(logrus.TraceLevel)
	case opts.Verbosity > 0:
		l.SetLevel(logrus.DebugLevel)
	default:
		l.SetLevel(logrus.WarnLevel)
	}
	return l, nil
}

// RequestLog opens path for appending and returns a logger writing one
// timestamped line per request. The returned closer closes the file.
func RequestLog(path string) (*logrus.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	l := logrus.New()
	l.SetOutput(f)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return l, f, nil
}
