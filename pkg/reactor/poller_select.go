//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package reactor

import (
	"errors"
	"golang.org/x/sys/unix"
	"os"
	"time"
)

// fdSetSize is FD_SETSIZE of the platform libc.
const fdSetSize = 1024

type selectPoller struct {
	rset  unix.FdSet
	wset  unix.FdSet
	eset  unix.FdSet
	ready []Interest
}

// NewSelectPoller returns a select(2) backend. It watches fds below 1024 only.
func NewSelectPoller() Poller {
	return &selectPoller{
		ready: make([]Interest, 0, 8),
	}
}

func (p *selectPoller) MaxFd() int {
	return fdSetSize
}

func (p *selectPoller) Poll(interests []Interest, timeout time.Duration) (ready []Interest, err error) {
	p.rset.Zero()
	p.wset.Zero()
	p.eset.Zero()
	maxFd := -1
	for _, in := range interests {
		if in.Fd < 0 || in.Fd >= fdSetSize {
			continue
		}
		if in.Events&EventRead != 0 {
			p.rset.Set(in.Fd)
		}
		if in.Events&EventWrite != 0 {
			p.wset.Set(in.Fd)
		}
		if in.Events&EventExcept != 0 {
			p.eset.Set(in.Fd)
		}
		if in.Fd > maxFd {
			maxFd = in.Fd
		}
	}
	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}
	n, selectErr := unix.Select(maxFd+1, &p.rset, &p.wset, &p.eset, tv)
	if selectErr != nil {
		if errors.Is(selectErr, unix.EBADF) {
			ready = p.probe(interests)
			if len(ready) > 0 {
				return
			}
		}
		err = os.NewSyscallError("select", selectErr)
		return
	}
	ready = p.ready[:0]
	if n == 0 {
		return
	}
	for _, in := range interests {
		if in.Fd < 0 || in.Fd >= fdSetSize {
			continue
		}
		var ev Events
		if p.rset.IsSet(in.Fd) {
			ev |= EventRead
		}
		if p.wset.IsSet(in.Fd) {
			ev |= EventWrite
		}
		if p.eset.IsSet(in.Fd) {
			ev |= EventExcept
		}
		if ev != 0 {
			ready = append(ready, Interest{Fd: in.Fd, Events: ev})
		}
	}
	p.ready = ready
	return
}

// probe finds the fds that made select fail with EBADF.
func (p *selectPoller) probe(interests []Interest) []Interest {
	ready := p.ready[:0]
	for _, in := range interests {
		if _, err := unix.FcntlInt(uintptr(in.Fd), unix.F_GETFD, 0); errors.Is(err, unix.EBADF) {
			ready = append(ready, Interest{Fd: in.Fd, Events: EventBadFd})
		}
	}
	p.ready = ready
	return ready
}

func (p *selectPoller) Close() error {
	return nil
}
