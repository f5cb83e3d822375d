//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package reactor

import (
	"golang.org/x/sys/unix"
	"os"
	"time"
)

type pollPoller struct {
	fds   []unix.PollFd
	ready []Interest
}

// NewPollPoller returns a poll(2) backend without the fd limit of select.
func NewPollPoller() Poller {
	return &pollPoller{
		fds:   make([]unix.PollFd, 0, 8),
		ready: make([]Interest, 0, 8),
	}
}

func (p *pollPoller) Poll(interests []Interest, timeout time.Duration) (ready []Interest, err error) {
	fds := p.fds[:0]
	for _, in := range interests {
		var events int16
		if in.Events&EventRead != 0 {
			events |= unix.POLLIN
		}
		if in.Events&EventWrite != 0 {
			events |= unix.POLLOUT
		}
		if in.Events&EventExcept != 0 {
			events |= unix.POLLPRI
		}
		fds = append(fds, unix.PollFd{Fd: int32(in.Fd), Events: events})
	}
	p.fds = fds

	ms := -1
	if timeout >= 0 {
		// round up, a sub millisecond wait must not turn into a busy loop
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, pollErr := unix.Poll(fds, ms)
	if pollErr != nil {
		err = os.NewSyscallError("poll", pollErr)
		return
	}
	ready = p.ready[:0]
	if n == 0 {
		return
	}
	for i, pfd := range fds {
		re := pfd.Revents
		if re == 0 {
			continue
		}
		var ev Events
		if re&unix.POLLNVAL != 0 {
			ev |= EventBadFd
		}
		if re&unix.POLLIN != 0 {
			ev |= EventRead
		}
		if re&unix.POLLOUT != 0 {
			ev |= EventWrite
		}
		if re&unix.POLLPRI != 0 {
			ev |= EventExcept
		}
		if re&(unix.POLLERR|unix.POLLHUP) != 0 {
			ev |= interests[i].Events & (EventRead | EventWrite)
		}
		if ev != 0 {
			ready = append(ready, Interest{Fd: interests[i].Fd, Events: ev})
		}
	}
	p.ready = ready
	return
}

func (p *pollPoller) Close() error {
	return nil
}
