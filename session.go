package rsock

import (
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/brickingsoft/rsock/pkg/sys"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"time"
)

// Session is one connect, listen or accept sequence.
type Session struct {
	id         uint64
	m          *Manager
	r          *reactor.Reactor
	log        *zap.Logger
	options    Options
	network    string
	address    string
	passive    bool
	role       Role
	state      State
	fd         *sys.Fd
	locals     []sys.Candidate
	candidates []sys.Candidate
	current    sys.Candidate
	timer      *reactor.Timer
	deadline   time.Time
	registered bool
	backlog    int
	cb         Callback
	opaque     any
	lastState  State
	lastErr    error
	err        error
	started    time.Time
	done       bool
}

func (s *Session) ID() uint64 {
	return s.id
}

// Fd returns the socket the session currently owns, -1 when it owns none.
func (s *Session) Fd() int {
	if s.fd == nil {
		return -1
	}
	return s.fd.Socket()
}

// State returns the last delivered state.
func (s *Session) State() State {
	return s.state
}

func (s *Session) Role() Role {
	return s.role
}

// Listener returns the listening session that accepted s, when it is still
// open.
func (s *Session) Listener() (*Session, bool) {
	if s.role.Kind != RoleChild {
		return nil, false
	}
	return s.m.Lookup(s.role.Listener)
}

// Err returns the cause of a failure state, nil otherwise.
func (s *Session) Err() error {
	return s.err
}

// Backlog is the listen backlog the session uses.
func (s *Session) Backlog() int {
	return s.backlog
}

func (s *Session) Network() string {
	return s.network
}

// Candidate returns the address being tried, bound or connected.
func (s *Session) Candidate() sys.Candidate {
	return s.current
}

// Released reports whether the session has ended and left its manager.
func (s *Session) Released() bool {
	return s.done
}

// Close ends the session without notifying the callback. It stops a pending
// connect and closes listeners and bound datagram sockets. Closing a
// released session does nothing.
func (s *Session) Close() (err error) {
	if s.done || s.state == Closing {
		return
	}
	s.state = Closing
	s.done = true
	s.log.Debug("rsock: close")
	err = s.teardown()
	s.release()
	return
}

// Cancel marks the socket of the session in the cancellation registry of
// the reactor. The session notices on its next step and fails with
// SysError.
func (s *Session) Cancel() {
	if s.fd == nil || s.fd.Socket() < 0 {
		return
	}
	s.r.Cancel(s.fd.Socket())
}

func (s *Session) canceled() bool {
	return s.fd != nil && s.fd.Socket() >= 0 && s.r.IsCanceled(s.fd.Socket())
}

func (s *Session) deliver(fd int, snap *Snapshot, state State) error {
	s.state = state
	s.options.Metrics.Transition(state.String())
	return s.cb(s.opaque, fd, snap, s, state)
}

// fail delivers a terminal failure and releases the session.
func (s *Session) fail(state State, cause error) {
	if s.done {
		return
	}
	s.done = true
	op := errMetaOpConnect
	if s.passive {
		op = errMetaOpListen
	}
	s.err = newStateError(op, state, s.address, cause)
	s.log.Debug("rsock: failed", zap.Stringer("state", state), zap.Error(cause))
	if err := s.teardown(); err != nil {
		s.log.Warn("rsock: teardown", zap.Error(err))
	}
	_ = s.deliver(-1, nil, state)
	s.release()
}

// retry drops the current candidate, remembering why it failed.
func (s *Session) retry(state State, cause error) {
	s.lastState, s.lastErr = state, cause
	s.log.Debug("rsock: candidate failed",
		zap.Stringer("candidate", s.current), zap.Stringer("state", state), zap.Error(cause),
	)
	if err := s.teardown(); err != nil {
		s.log.Warn("rsock: teardown", zap.Error(err))
	}
}

// handover delivers Connected and gives the socket to the callback unless
// it vetoes, then releases the session.
func (s *Session) handover(snap *Snapshot) {
	s.done = true
	s.cancelTimer()
	s.unregister()
	if s.role.Kind == RoleStandalone {
		s.options.Metrics.Connected(time.Since(s.started))
	}
	if err := s.deliver(s.fd.Socket(), snap, Connected); err != nil {
		s.log.Debug("rsock: connected vetoed", zap.Error(err))
		if closeErr := s.closeFd(); closeErr != nil {
			s.log.Warn("rsock: close", zap.Error(closeErr))
		}
	} else if s.fd != nil {
		s.fd.Detach()
		s.fd = nil
	}
	s.release()
}

func (s *Session) release() {
	s.m.remove(s)
}

func (s *Session) teardown() error {
	s.cancelTimer()
	s.unregister()
	return s.closeFd()
}

func (s *Session) cancelTimer() {
	if s.timer == nil {
		return
	}
	_ = s.r.Dequeue(s.timer)
	s.timer = nil
}

func (s *Session) unregister() {
	if !s.registered {
		return
	}
	s.registered = false
	_ = s.r.Unregister(s.fd.Socket())
}

func (s *Session) closeFd() (err error) {
	if s.fd == nil {
		return
	}
	if sock := s.fd.Socket(); sock >= 0 {
		s.r.ClearCancel(sock)
	}
	err = s.fd.Close()
	s.fd = nil
	return
}

// tune applies the stream options, failures are only logged.
func (s *Session) tune(fd *sys.Fd) {
	if fd.SocketType() != unix.SOCK_STREAM || fd.Family() == unix.AF_UNIX {
		return
	}
	if s.options.NoDelay {
		if err := sys.SetNoDelay(fd.Socket(), true); err != nil {
			s.log.Warn("rsock: set nodelay", zap.Error(err))
		}
	}
	if s.options.KeepAlive > 0 {
		if err := sys.SetKeepAlive(fd.Socket(), true, s.options.KeepAlive); err != nil {
			s.log.Warn("rsock: set keepalive", zap.Error(err))
		}
	}
}

// armTimer schedules cb at the current deadline, starting a new one when
// none is running.
func (s *Session) armTimer(cb reactor.TimerFunc) error {
	if s.options.Timeout <= 0 {
		return nil
	}
	if s.deadline.IsZero() {
		s.deadline = s.r.Now().Add(s.options.Timeout)
	}
	s.cancelTimer()
	t, err := s.r.EnqueueAt(s.deadline, cb, s)
	if err != nil {
		return err
	}
	s.timer = t
	return nil
}
