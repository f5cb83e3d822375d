package rsock_test

import (
	"github.com/brickingsoft/rsock"
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"net"
	"testing"
	"time"
)

// newLoop builds a reactor whose ticks never block longer than 10ms, and a
// manager on it.
func newLoop(t *testing.T, reactorOptions []reactor.Option, options ...rsock.Option) (*reactor.Reactor, *rsock.Manager) {
	t.Helper()
	r, err := reactor.New(reactorOptions...)
	require.NoError(t, err)
	t.Cleanup(r.Destroy)
	_, err = r.AddPoll(func(_ *reactor.Reactor, _ any, _ time.Time, _ reactor.TaskFlags) (time.Duration, bool) {
		return 10 * time.Millisecond, true
	}, nil)
	require.NoError(t, err)
	m, err := rsock.New(r, options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.Close()
	})
	return r, m
}

func tickUntil(t *testing.T, r *reactor.Reactor, cond func() bool, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "condition not met within %s", within)
		require.NoError(t, r.Tick())
	}
}

type event struct {
	fd    int
	snap  *rsock.Snapshot
	sess  *rsock.Session
	state rsock.State
}

type recorder struct {
	t      *testing.T
	events []event
	veto   map[rsock.State]error
	hook   func(e event)
}

func newRecorder(t *testing.T) *recorder {
	return &recorder{t: t, veto: make(map[rsock.State]error)}
}

func (rec *recorder) callback(_ any, fd int, snap *rsock.Snapshot, sess *rsock.Session, state rsock.State) error {
	e := event{fd: fd, snap: snap, sess: sess, state: state}
	rec.events = append(rec.events, e)
	if rec.hook != nil {
		rec.hook(e)
	}
	err := rec.veto[state]
	if state == rsock.Connected && err == nil {
		rec.t.Cleanup(func() {
			_ = unix.Close(fd)
		})
	}
	return err
}

func (rec *recorder) count(state rsock.State) int {
	n := 0
	for _, e := range rec.events {
		if e.state == state {
			n++
		}
	}
	return n
}

func (rec *recorder) terminal() []event {
	var events []event
	for _, e := range rec.events {
		if e.state.Terminal() {
			events = append(events, e)
		}
	}
	return events
}

func (rec *recorder) finished() bool {
	return len(rec.terminal()) > 0
}

func (rec *recorder) states() []rsock.State {
	states := make([]rsock.State, 0, len(rec.events))
	for _, e := range rec.events {
		states = append(states, e.state)
	}
	return states
}

// closedAddrs returns n loopback addresses nothing listens on.
func closedAddrs(t *testing.T, n int) []string {
	t.Helper()
	addrs := make([]string, 0, n)
	lns := make([]net.Listener, 0, n)
	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		lns = append(lns, ln)
		addrs = append(addrs, ln.Addr().String())
	}
	for _, ln := range lns {
		require.NoError(t, ln.Close())
	}
	return addrs
}

func listenLoopback(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ln.Close()
	})
	return ln
}

// mutePoller hides write readiness, so connects never look complete.
type mutePoller struct {
	inner reactor.Poller
	buf   []reactor.Interest
}

func newMutePoller() *mutePoller {
	return &mutePoller{inner: reactor.NewSelectPoller()}
}

func (p *mutePoller) Poll(interests []reactor.Interest, timeout time.Duration) ([]reactor.Interest, error) {
	buf := p.buf[:0]
	for _, in := range interests {
		if ev := in.Events &^ reactor.EventWrite; ev != 0 {
			buf = append(buf, reactor.Interest{Fd: in.Fd, Events: ev})
		}
	}
	p.buf = buf
	return p.inner.Poll(buf, timeout)
}

func (p *mutePoller) MaxFd() int {
	return p.inner.(reactor.Limited).MaxFd()
}

func (p *mutePoller) Close() error {
	return p.inner.Close()
}

func isClosedFd(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == unix.EBADF
}

func pipe(t *testing.T) (int, int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func writeByte(t *testing.T, fd int) {
	t.Helper()
	_, err := unix.Write(fd, []byte{1})
	require.NoError(t, err)
}

func closeFd(fd int) error {
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}
