// Package rsock drives non-blocking connect, listen and accept sequences on
// top of a reactor.Reactor.
//
// A session resolves its endpoint to an ordered list of candidate addresses
// and tries them one by one until one connects (or binds), reporting every
// step to a Callback. Terminal states are delivered exactly once, after
// which the session is released. Listening sessions persist and spawn one
// child session per accepted connection.
//
// Like the reactor, a Manager and its sessions must only be used from the
// goroutine that ticks the reactor.
package rsock

import (
	"context"
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/brickingsoft/rsock/pkg/sys"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"sort"
	"time"
)

// Endpoint names one side of a session. A nil *Endpoint is absent.
type Endpoint struct {
	Network string
	Address string
}

func (ep *Endpoint) String() string {
	if ep == nil {
		return "<nil>"
	}
	return ep.Network + ":" + ep.Address
}

// Callback receives the transitions of a session.
//
// fd is -1 on failures. snap is set for Connected and Ready only, the
// callback owns it from then on. Returning an error from Socket, Ready or
// Connected vetoes the transition; failure callbacks can not veto.
type Callback func(opaque any, fd int, snap *Snapshot, sess *Session, state State) error

// Manager owns the live sessions of one reactor.
type Manager struct {
	r        *reactor.Reactor
	options  Options
	sessions map[uint64]*Session
	seq      uint64
	closed   bool
}

// New creates a Manager on r. options become the defaults of every session
// opened by it.
func New(r *reactor.Reactor, options ...Option) (m *Manager, err error) {
	if r == nil {
		err = newError(errMetaOpOpen, "new manager failed", ErrInvalidArgument)
		return
	}
	opts := defaultOptions()
	for _, option := range options {
		if option == nil {
			continue
		}
		if err = option(&opts); err != nil {
			err = newError(errMetaOpOpen, "new manager failed", err)
			return
		}
	}
	m = &Manager{
		r:        r,
		options:  opts,
		sessions: make(map[uint64]*Session),
	}
	return
}

func (m *Manager) Reactor() *reactor.Reactor {
	return m.r
}

// Open starts a session.
//
// With remote set the session connects, binding to local first when it is
// set too. With remote nil it binds local and, for stream networks, listens
// and accepts. Resolution failures are returned, everything after that is
// reported through cb, possibly before Open returns.
func (m *Manager) Open(local *Endpoint, remote *Endpoint, cb Callback, opaque any, options ...Option) (*Session, error) {
	return m.open(context.Background(), local, remote, cb, opaque, options...)
}

func (m *Manager) open(ctx context.Context, local *Endpoint, remote *Endpoint, cb Callback, opaque any, options ...Option) (s *Session, err error) {
	if cb == nil || (local == nil && remote == nil) {
		err = newError(errMetaOpOpen, "open failed", ErrInvalidArgument)
		return
	}
	if m.closed {
		err = newError(errMetaOpOpen, "open failed", ErrManagerClosed)
		return
	}
	if m.r.Destroyed() {
		err = newError(errMetaOpOpen, "open failed", reactor.ErrDestroyed)
		return
	}
	opts := m.options
	for _, option := range options {
		if option == nil {
			continue
		}
		if err = option(&opts); err != nil {
			err = newError(errMetaOpOpen, "open failed", err)
			return
		}
	}

	var (
		network string
		address string
		locals  []sys.Candidate
		remotes []sys.Candidate
	)
	if remote != nil {
		network, address = remote.Network, remote.Address
	} else {
		network, address = local.Network, local.Address
	}
	sotype, _, typeErr := sys.SocketType(network)
	if typeErr != nil {
		err = newError(errMetaOpOpen, "open failed", typeErr)
		return
	}
	if local != nil {
		if localType, _, localErr := sys.SocketType(local.Network); localErr != nil || localType != sotype {
			err = newError(errMetaOpOpen, "open failed", ErrInvalidArgument)
			return
		}
		if locals, err = opts.Resolver.Resolve(ctx, local.Network, local.Address, true); err != nil {
			err = newError(errMetaOpOpen, "open failed", err)
			return
		}
	}
	if remote != nil {
		if remotes, err = opts.Resolver.Resolve(ctx, remote.Network, remote.Address, false); err != nil {
			err = newError(errMetaOpOpen, "open failed", err)
			return
		}
		if sotype == unix.SOCK_DGRAM && len(remotes) > 1 {
			// datagram connect completes at once, there is nothing to retry on
			remotes = remotes[:1]
		}
	}

	s = m.newSession(network, address, cb, opaque, opts, Standalone())
	s.locals = locals
	s.candidates = remotes
	s.passive = remote == nil
	m.add(s)
	s.log.Debug("rsock: open",
		zap.Stringer("local", local), zap.Stringer("remote", remote),
		zap.Int("locals", len(locals)), zap.Int("candidates", len(remotes)),
	)
	if s.passive {
		s.listenNext()
	} else {
		s.connectNext()
	}
	return
}

func (m *Manager) newSession(network string, address string, cb Callback, opaque any, options Options, role Role) *Session {
	m.seq++
	backlog := options.Backlog
	if backlog <= 0 {
		backlog = sys.MaxListenerBacklog()
	}
	return &Session{
		id:        m.seq,
		m:         m,
		r:         m.r,
		log:       options.Logger.With(zap.Uint64("session", m.seq)),
		options:   options,
		network:   network,
		address:   address,
		role:      role,
		state:     Socket,
		backlog:   backlog,
		cb:        cb,
		opaque:    opaque,
		lastState: SysError,
		lastErr:   sys.ErrNoCandidates,
		started:   time.Now(),
	}
}

func (m *Manager) add(s *Session) {
	m.sessions[s.id] = s
	s.options.Metrics.Opened()
}

func (m *Manager) remove(s *Session) {
	if _, exist := m.sessions[s.id]; !exist {
		return
	}
	delete(m.sessions, s.id)
	s.options.Metrics.Finished()
}

// Lookup finds a live session by id.
func (m *Manager) Lookup(id uint64) (s *Session, ok bool) {
	s, ok = m.sessions[id]
	return
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return len(m.sessions)
}

// Close closes every live session without notifying their callbacks and
// refuses further Open calls.
func (m *Manager) Close() (err error) {
	m.closed = true
	ids := make([]uint64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		if s, exist := m.sessions[id]; exist {
			err = multierr.Append(err, s.Close())
		}
	}
	return
}
