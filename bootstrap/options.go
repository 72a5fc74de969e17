package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/gears/logger"
)

// Option tunes NewApp.
type Option func(*settings)

type settings struct {
	log      *logger.Logger
	grace    time.Duration
	summary  io.Writer
	hasGrace bool
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger replaces the logger built from the logging section of the config.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout bounds stop hooks plus component shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) { s.grace, s.hasGrace = d, true }
}

// WithSummaryOutput redirects the startup banner. Nil silences it.
func WithSummaryOutput(w io.Writer) Option {
	return func(s *settings) {
		if w == nil {
			w = io.Discard
		}
		s.summary = w
	}
}
