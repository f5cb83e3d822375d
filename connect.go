package rsock

import (
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/brickingsoft/rsock/pkg/sys"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"os"
	"runtime"
	"time"
)

// connectNext tries the remaining candidates until one is in flight, one
// connected or the list ran out.
func (s *Session) connectNext() {
	for !s.done {
		if len(s.candidates) == 0 {
			s.fail(s.lastState, s.lastErr)
			return
		}
		c := s.candidates[0]
		s.candidates = s.candidates[1:]
		if s.connect(c) {
			return
		}
	}
}

// connect starts one attempt. It returns false when the candidate failed
// and the next one should be tried.
func (s *Session) connect(c sys.Candidate) bool {
	s.current = c
	s.deadline = time.Time{}
	s.options.Metrics.Attempt()
	s.log.Debug("rsock: connect", zap.Stringer("candidate", c))

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
	s.tune(fd)

	if len(s.locals) > 0 {
		local, ok := s.localFor(c.Family)
		if !ok {
			s.retry(LocalError, ErrFamilyMismatch)
			return false
		}
		if err = fd.Bind(local.Sockaddr); err != nil {
			s.retry(classifyErr(err), err)
			return false
		}
	}

	fd.SetRemoteAddr(c.Addr)
	err = fd.Connect(c.Sockaddr)
	switch outcome := ClassifyConnectCompletion(errnoOf(err), runtime.GOOS); outcome {
	case OutcomeConnected:
		return s.connected()
	case OutcomePending:
		if waitErr := s.await(); waitErr != nil {
			s.retry(SysError, waitErr)
			return false
		}
		return true
	default:
		s.retry(outcome.State(), err)
		return false
	}
}

func (s *Session) localFor(family int) (sys.Candidate, bool) {
	for _, local := range s.locals {
		if local.Family == family {
			return local, true
		}
	}
	return sys.Candidate{}, false
}

// await watches the socket for write readiness, bounded by the timeout.
func (s *Session) await() error {
	if err := s.r.Register(s.fd.Socket(), s.handleConnect, s, reactor.EventWrite); err != nil {
		return err
	}
	s.registered = true
	return s.armTimer(s.handleConnectTimeout)
}

func (s *Session) handleConnect(_ *reactor.Reactor, _ int, events reactor.Events, _ any, _ time.Time) {
	if events.Any(reactor.EventDestroy) {
		s.registered = false
		s.fail(SysError, reactor.ErrDestroyed)
		return
	}
	if events.Any(reactor.EventClosed) {
		if s.registered {
			// someone else unregistered the socket
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
	s.cancelTimer()
	s.unregister()
	if events.Any(reactor.EventBadFd) {
		s.retry(SysError, os.NewSyscallError("select", unix.EBADF))
		s.connectNext()
		return
	}
	outcome, err := s.probe()
	switch outcome {
	case OutcomeConnected:
		if !s.connected() {
			s.connectNext()
		}
		break
	case OutcomePending:
		if waitErr := s.await(); waitErr != nil {
			s.retry(SysError, waitErr)
			s.connectNext()
		}
		break
	default:
		s.retry(outcome.State(), err)
		s.connectNext()
		break
	}
}

// probe re-issues connect(2) to learn how the attempt ended.
func (s *Session) probe() (Outcome, error) {
	err := s.fd.Connect(s.current.Sockaddr)
	outcome := ClassifyConnectCompletion(errnoOf(err), runtime.GOOS)
	if outcome != OutcomeCheckSocketError {
		return outcome, err
	}
	errno, soErr := sys.SocketError(s.fd.Socket())
	if soErr != nil {
		return OutcomeSysError, soErr
	}
	if errno == 0 {
		if s.fd.LoadRemoteAddr() == nil {
			return OutcomeConnected, nil
		}
		return OutcomeSysError, newError(errMetaOpConnect, "connect failed", ErrNotConnected)
	}
	return classifyFailure(errno), os.NewSyscallError("connect", errno)
}

func (s *Session) handleConnectTimeout(_ *reactor.Reactor, _ any, _ time.Time, flags reactor.TimerFlags) {
	s.timer = nil
	if s.done {
		return
	}
	if flags&reactor.TimerDestroy != 0 {
		s.fail(SysError, reactor.ErrDestroyed)
		return
	}
	if s.canceled() {
		s.fail(SysError, ErrCanceled)
		return
	}
	s.retry(Timeout, ErrTimeout)
	s.connectNext()
}

// connected snapshots the socket and hands it over. It returns false when
// the socket turned out unusable and the next candidate should be tried.
func (s *Session) connected() bool {
	snap, err := takeSnapshot(s.fd, true)
	if err != nil {
		s.retry(SysError, err)
		return false
	}
	s.log.Debug("rsock: connected", zap.Stringer("snapshot", snap))
	s.handover(snap)
	return true
}
