package reactor

import (
	"strings"
	"time"
)

// Events is the readiness bitmap handed to a Handler.
// EventRead, EventWrite and EventExcept are interest bits; the others are
// synthetic notifications produced by the reactor itself.
type Events uint32

const (
	EventRead Events = 1 << iota
	EventWrite
	EventExcept
	EventClosed
	EventDestroy
	EventBadFd
)

const interestMask = EventRead | EventWrite | EventExcept

func (ev Events) Has(bits Events) bool {
	return ev&bits == bits
}

func (ev Events) Any(bits Events) bool {
	return ev&bits != 0
}

func (ev Events) String() string {
	if ev == 0 {
		return "none"
	}
	names := make([]string, 0, 6)
	if ev&EventRead != 0 {
		names = append(names, "read")
	}
	if ev&EventWrite != 0 {
		names = append(names, "write")
	}
	if ev&EventExcept != 0 {
		names = append(names, "except")
	}
	if ev&EventClosed != 0 {
		names = append(names, "closed")
	}
	if ev&EventDestroy != 0 {
		names = append(names, "destroy")
	}
	if ev&EventBadFd != 0 {
		names = append(names, "badfd")
	}
	return strings.Join(names, "|")
}

// Handler receives readiness and lifecycle notifications for a registered fd.
type Handler func(r *Reactor, fd int, events Events, opaque any, now time.Time)

// Interest pairs a file descriptor with a set of interest (or fired) bits.
type Interest struct {
	Fd     int
	Events Events
}
