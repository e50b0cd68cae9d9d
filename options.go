package chip8

import (
	"crypto/rand"
	"io"

	"github.com/retroenv/retrogolib/log"
)

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger used for load and trace messages.
func WithLogger(logger *log.Logger) Option {
	return func(sys *System) {
		sys.logger = logger
	}
}

// WithRandom replaces the source of the random number instruction.
// The default source is crypto/rand.
func WithRandom(rng io.Reader) Option {
	return func(sys *System) {
		sys.rng = rng
	}
}

// WithTrace enables logging of every executed instruction at debug level.
func WithTrace(trace bool) Option {
	return func(sys *System) {
		sys.trace = trace
	}
}

func defaultOptions(sys *System) {
	sys.logger = log.NewWithConfig(log.DefaultConfig())
	sys.rng = rand.Reader
}
