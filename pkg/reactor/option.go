package reactor

import (
	"github.com/brickingsoft/rsock/pkg/metrics"
	"go.uber.org/zap"
	"time"
)

type Options struct {
	Poller  Poller
	Logger  *zap.Logger
	Clock   func() time.Time
	Metrics *metrics.Reactor
}

type Option func(options *Options) (err error)

// WithPoller
// sets the multiplexer backend. The default is NewSelectPoller.
// The reactor takes ownership of poller and closes it on Destroy.
func WithPoller(poller Poller) Option {
	return func(options *Options) (err error) {
		if poller == nil {
			err = ErrInvalidArgument
			return
		}
		options.Poller = poller
		return
	}
}

// WithLogger
// sets the logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(options *Options) (err error) {
		if logger != nil {
			options.Logger = logger
		}
		return
	}
}

// WithClock
// replaces time.Now as the source of tick timestamps and timer deadlines.
func WithClock(clock func() time.Time) Option {
	return func(options *Options) (err error) {
		if clock == nil {
			err = ErrInvalidArgument
			return
		}
		options.Clock = clock
		return
	}
}

// WithMetrics
// enables prometheus instrumentation, see metrics.NewReactor.
func WithMetrics(m *metrics.Reactor) Option {
	return func(options *Options) (err error) {
		options.Metrics = m
		return
	}
}
