package rsock

import (
	"github.com/brickingsoft/rsock/pkg/metrics"
	"github.com/brickingsoft/rsock/pkg/sys"
	"go.uber.org/zap"
	"time"
)

const (
	DefaultBacklog = 0
)

type Options struct {
	Timeout   time.Duration
	Backlog   int
	Resolver  sys.Resolver
	ReuseAddr bool
	NoDelay   bool
	KeepAlive time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Sessions
}

func defaultOptions() Options {
	return Options{
		Backlog:   DefaultBacklog,
		Resolver:  &sys.DefaultResolver{},
		ReuseAddr: true,
		Logger:    zap.NewNop(),
	}
}

type Option func(options *Options) (err error)

// WithTimeout
// bounds every connect attempt. A candidate still pending when it elapses
// counts as Timeout and the next candidate is tried. A listener that accepts
// nothing for this long terminates with Timeout. Zero waits forever.
func WithTimeout(timeout time.Duration) Option {
	return func(options *Options) (err error) {
		if timeout < 0 {
			err = ErrInvalidArgument
			return
		}
		options.Timeout = timeout
		return
	}
}

// WithBacklog
// sets the listen backlog. Zero or less uses the system maximum, see
// sys.MaxListenerBacklog.
func WithBacklog(backlog int) Option {
	return func(options *Options) (err error) {
		if backlog < 0 {
			backlog = 0
		}
		options.Backlog = backlog
		return
	}
}

// WithResolver
// replaces the address resolution, the default is sys.DefaultResolver.
func WithResolver(resolver sys.Resolver) Option {
	return func(options *Options) (err error) {
		if resolver == nil {
			err = ErrInvalidArgument
			return
		}
		options.Resolver = resolver
		return
	}
}

// WithReuseAddr
// toggles SO_REUSEADDR on listeners. On by default.
func WithReuseAddr(reuse bool) Option {
	return func(options *Options) (err error) {
		options.ReuseAddr = reuse
		return
	}
}

// WithNoDelay
// sets TCP_NODELAY on stream sockets.
func WithNoDelay(noDelay bool) Option {
	return func(options *Options) (err error) {
		options.NoDelay = noDelay
		return
	}
}

// WithKeepAlive
// enables SO_KEEPALIVE with the given idle time on stream sockets.
func WithKeepAlive(idle time.Duration) Option {
	return func(options *Options) (err error) {
		if idle < 0 {
			idle = 0
		}
		options.KeepAlive = idle
		return
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(options *Options) (err error) {
		if logger != nil {
			options.Logger = logger
		}
		return
	}
}

// WithMetrics
// enables prometheus instrumentation, see metrics.NewSessions.
func WithMetrics(m *metrics.Sessions) Option {
	return func(options *Options) (err error) {
		options.Metrics = m
		return
	}
}
