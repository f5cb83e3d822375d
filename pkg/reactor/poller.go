package reactor

import (
	"time"
)

// Poller is a readiness multiplexer.
//
// Poll blocks until one of interests is ready or timeout elapses. A negative
// timeout blocks indefinitely. The returned slice carries the fired bits per
// fd, in the order of interests, and is only valid until the next call.
type Poller interface {
	Poll(interests []Interest, timeout time.Duration) ([]Interest, error)
	Close() error
}

// Limited is implemented by pollers that can only watch fds below MaxFd.
type Limited interface {
	MaxFd() int
}

// DefaultPoller returns the backend used when no WithPoller option is given.
func DefaultPoller() Poller {
	return NewSelectPoller()
}
