package reactor

import (
	"go.uber.org/zap"
	"sort"
)

type registration struct {
	fd       int
	handler  Handler
	opaque   any
	interest Events
	closing  bool
	// destroyed is set once the handler got EventDestroy from Destroy.
	destroyed bool
}

// Register adds fd to the registry. The interest bitmap is applied from the
// next multiplexer wait on.
func (r *Reactor) Register(fd int, handler Handler, opaque any, interest Events) error {
	if fd < 0 || handler == nil {
		return ErrInvalidArgument
	}
	if r.flags.inDestroy {
		return ErrDestroyed
	}
	if _, exist := r.fds[fd]; exist {
		return ErrAlreadyRegistered
	}
	if limit := r.maxFd; limit > 0 && fd >= limit {
		return newError(errMetaOpRegister, "register failed", ErrFdOutOfRange)
	}
	r.fds[fd] = &registration{
		fd:       fd,
		handler:  handler,
		opaque:   opaque,
		interest: interest & interestMask,
	}
	return nil
}

// Unregister notifies the handler with EventClosed and drops the registration.
// During Destroy a handler that has not seen EventDestroy yet gets
// EventClosed|EventDestroy instead, one that has gets nothing more.
// Unregistering an unknown fd is harmless and only logged.
func (r *Reactor) Unregister(fd int) error {
	reg, exist := r.fds[fd]
	if !exist || reg.closing {
		r.log.Warn("reactor: unregister of unknown fd", zap.Int("fd", fd))
		return ErrNotRegistered
	}
	reg.closing = true
	switch {
	case !r.flags.inDestroy:
		reg.handler(r, fd, EventClosed, reg.opaque, r.clock())
	case !reg.destroyed:
		// dropped by another handler during teardown, before its own turn
		reg.destroyed = true
		reg.handler(r, fd, EventClosed|EventDestroy, reg.opaque, r.clock())
	}
	if cur, ok := r.fds[fd]; ok && cur == reg {
		delete(r.fds, fd)
	}
	delete(r.canceled, fd)
	return nil
}

func (r *Reactor) Registered(fd int) bool {
	reg, exist := r.fds[fd]
	return exist && !reg.closing
}

func (r *Reactor) Interest(fd int) (Events, error) {
	reg, exist := r.fds[fd]
	if !exist {
		return 0, ErrNotRegistered
	}
	return reg.interest, nil
}

// SetInterest adds then removes interest bits.
func (r *Reactor) SetInterest(fd int, add Events, remove Events) error {
	reg, exist := r.fds[fd]
	if !exist {
		return ErrNotRegistered
	}
	reg.interest = (reg.interest | (add & interestMask)) &^ remove
	return nil
}

// Len returns the number of registered fds.
func (r *Reactor) Len() int {
	return len(r.fds)
}

// interests lists every registration with a non-empty interest, ascending by fd.
func (r *Reactor) interests(dst []Interest) []Interest {
	dst = dst[:0]
	for fd, reg := range r.fds {
		if reg.closing || reg.interest == 0 {
			continue
		}
		dst = append(dst, Interest{Fd: fd, Events: reg.interest})
	}
	sort.Slice(dst, func(i, j int) bool {
		return dst[i].Fd < dst[j].Fd
	})
	return dst
}
