package rsock

import (
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/brickingsoft/rsock/pkg/sys"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"os"
	"time"
)

// listenNext binds the local candidates in order until one is ready.
func (s *Session) listenNext() {
	for !s.done {
		if len(s.locals) == 0 {
			s.fail(s.lastState, s.lastErr)
			return
		}
		c := s.locals[0]
		s.locals = s.locals[1:]
		if s.listen(c) {
			return
		}
	}
}

func (s *Session) listen(c sys.Candidate) bool {
	s.current = c
	s.options.Metrics.Attempt()
	s.log.Debug("rsock: listen", zap.Stringer("candidate", c))

	fd, err := sys.OpenFd(c)
	if err != nil {
		s.retry(classifyErr(err), err)
		return false
	}
	s.fd = fd
	if vetoErr := s.deliver(fd.Socket(), nil, Socket); vetoErr != nil {
		s.fail(LocalError, ErrVetoed)
		return true
	}
	if s.done {
		return true
	}
	if s.canceled() {
		s.fail(SysError, ErrCanceled)
		return true
	}

	stream := c.SocketType != unix.SOCK_DGRAM
	if s.options.ReuseAddr && c.Family != unix.AF_UNIX {
		if err = sys.SetReuseAddr(fd.Socket(), true); err != nil {
			s.log.Warn("rsock: set reuseaddr", zap.Error(err))
		}
	}
	if c.SocketType == unix.SOCK_DGRAM && c.Family != unix.AF_UNIX {
		if err = sys.SetBroadcast(fd.Socket(), true); err != nil {
			s.log.Warn("rsock: set broadcast", zap.Error(err))
		}
	}
	if err = fd.Bind(c.Sockaddr); err != nil {
		s.retry(classifyErr(err), err)
		return false
	}
	if stream {
		if err = fd.Listen(s.backlog); err != nil {
			s.retry(classifyErr(err), err)
			return false
		}
	}
	snap, snapErr := takeSnapshot(fd, false)
	if snapErr != nil {
		s.retry(SysError, snapErr)
		return false
	}

	if vetoErr := s.deliver(fd.Socket(), snap, Ready); vetoErr != nil {
		s.fail(LocalError, ErrVetoed)
		return true
	}
	if s.done || !stream {
		return true
	}
	if err = s.r.Register(fd.Socket(), s.handleAccept, s, reactor.EventRead); err != nil {
		s.fail(SysError, err)
		return true
	}
	s.registered = true
	if err = s.armTimer(s.handleAcceptTimeout); err != nil {
		s.fail(SysError, err)
	}
	return true
}

// handleAccept takes one connection per readiness notification.
func (s *Session) handleAccept(_ *reactor.Reactor, fd int, events reactor.Events, _ any, _ time.Time) {
	if events.Any(reactor.EventDestroy) {
		s.registered = false
		s.fail(SysError, reactor.ErrDestroyed)
		return
	}
	if events.Any(reactor.EventClosed) {
		if s.registered {
			s.registered = false
			s.fail(SysError, ErrClosed)
		}
		return
	}
	if s.done {
		return
	}
	if s.canceled() {
		s.fail(SysError, ErrCanceled)
		return
	}
	if events.Any(reactor.EventBadFd) {
		s.fail(SysError, os.NewSyscallError("select", unix.EBADF))
		return
	}
	sock, sa, err := sys.Accept(fd)
	if err != nil {
		if isTransientAccept(err) {
			s.log.Debug("rsock: accept", zap.Error(err))
			return
		}
		s.fail(SysError, err)
		return
	}
	s.deadline = time.Time{}
	if err = s.armTimer(s.handleAcceptTimeout); err != nil {
		s.log.Warn("rsock: rearm accept timeout", zap.Error(err))
	}
	s.spawn(sock, sa)
}

// spawn turns an accepted socket into a child session carrying the
// callback of the listener, and delivers Connected on it.
func (s *Session) spawn(sock int, sa unix.Sockaddr) {
	child := s.m.newSession(s.network, s.address, s.cb, s.opaque, s.options, ChildOf(s.id))
	child.passive = true
	fd := sys.NewFd(s.fd.Net(), sock, s.fd.Family(), s.fd.SocketType(), s.fd.Protocol())
	fd.SetRemoteAddr(sys.SockaddrToAddr(s.fd.Net(), sa))
	child.fd = fd
	child.current = s.current
	s.m.add(child)
	s.options.Metrics.Accepted()
	child.tune(fd)

	snap, err := takeSnapshot(fd, false)
	if err != nil {
		child.fail(SysError, err)
		return
	}
	child.log.Debug("rsock: accepted", zap.Uint64("listener", s.id), zap.Stringer("snapshot", snap))
	child.handover(snap)
}

func (s *Session) handleAcceptTimeout(_ *reactor.Reactor, _ any, _ time.Time, flags reactor.TimerFlags) {
	s.timer = nil
	if s.done {
		return
	}
	if flags&reactor.TimerDestroy != 0 {
		s.fail(SysError, reactor.ErrDestroyed)
		return
	}
	s.fail(Timeout, ErrTimeout)
}
