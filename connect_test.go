package rsock_test

import (
	"context"
	"errors"
	"github.com/brickingsoft/rsock"
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/brickingsoft/rsock/pkg/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"strings"
	"testing"
	"time"
)

func TestConnectRetriesCandidates(t *testing.T) {
	r, m := newLoop(t, nil)
	ln := listenLoopback(t)
	refused := closedAddrs(t, 2)
	addresses := append(refused, ln.Addr().String())

	rec := newRecorder(t)
	var sockets []int
	rec.hook = func(e event) {
		if e.state != rsock.Socket {
			return
		}
		// the previous socket is gone, possibly reused by this one
		if n := len(sockets); n > 0 {
			prev := sockets[n-1]
			assert.True(t, prev == e.fd || isClosedFd(prev), "socket %d still open", prev)
		}
		sockets = append(sockets, e.fd)
		assert.Equal(t, addresses[len(sockets)-1], e.sess.Candidate().Addr.String())
	}
	sess, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: strings.Join(addresses, ",")}, rec.callback, nil)
	require.NoError(t, err)
	tickUntil(t, r, rec.finished, 5*time.Second)

	assert.Len(t, sockets, 3)
	terminal := rec.terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, rsock.Connected, terminal[0].state)
	require.NotNil(t, terminal[0].snap)
	assert.Equal(t, ln.Addr().String(), terminal[0].snap.Remote.String())
	assert.Equal(t, "tcp", terminal[0].snap.Network)
	assert.GreaterOrEqual(t, terminal[0].fd, 0)
	assert.False(t, isClosedFd(terminal[0].fd))
	assert.Equal(t, -1, sess.Fd())
	assert.True(t, sess.Released())
	assert.Equal(t, 0, m.Len())
}

func TestConnectExhaustsCandidates(t *testing.T) {
	r, m := newLoop(t, nil)
	refused := closedAddrs(t, 2)

	candidates, err := sys.ParseCandidates("tcp", strings.Join(refused, ","))
	require.NoError(t, err)
	resolver := sys.StaticResolver{"refused": candidates}

	rec := newRecorder(t)
	sess, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: "refused"}, rec.callback, nil, rsock.WithResolver(resolver))
	require.NoError(t, err)
	tickUntil(t, r, rec.finished, 5*time.Second)
	// nothing arrives afterwards
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Tick())
	}

	assert.Equal(t, 2, rec.count(rsock.Socket))
	terminal := rec.terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, rsock.RemoteError, terminal[0].state)
	assert.Nil(t, terminal[0].snap)
	assert.Equal(t, -1, terminal[0].fd)
	assert.Error(t, sess.Err())
	assert.Equal(t, rsock.RemoteError, sess.State())
	assert.Equal(t, 0, m.Len())
}

func TestConnectTimeout(t *testing.T) {
	r, m := newLoop(t, []reactor.Option{reactor.WithPoller(newMutePoller())})
	ln := listenLoopback(t)

	rec := newRecorder(t)
	begin := time.Now()
	sess, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()}, rec.callback, nil,
		rsock.WithTimeout(100*time.Millisecond),
	)
	require.NoError(t, err)
	tickUntil(t, r, rec.finished, 2*time.Second)
	elapsed := time.Since(begin)

	terminal := rec.terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, rsock.Timeout, terminal[0].state)
	assert.Nil(t, terminal[0].snap)
	assert.True(t, rsock.IsTimeout(sess.Err()))
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, 0, r.Len())
}

func TestConnectBindInUse(t *testing.T) {
	r, m := newLoop(t, nil)
	ln := listenLoopback(t)
	target := listenLoopback(t)

	rec := newRecorder(t)
	_, err := m.Open(
		&rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()},
		&rsock.Endpoint{Network: "tcp", Address: target.Addr().String()},
		rec.callback, nil,
	)
	require.NoError(t, err)
	tickUntil(t, r, rec.finished, time.Second)

	terminal := rec.terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, rsock.LocalError, terminal[0].state)
}

func TestConnectSocketVeto(t *testing.T) {
	_, m := newLoop(t, nil)
	ln := listenLoopback(t)

	rec := newRecorder(t)
	rec.veto[rsock.Socket] = errors.New("no")
	sess, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()}, rec.callback, nil)
	require.NoError(t, err)

	assert.Equal(t, []rsock.State{rsock.Socket, rsock.LocalError}, rec.states())
	assert.ErrorIs(t, sess.Err(), rsock.ErrVetoed)
	assert.True(t, isClosedFd(rec.events[0].fd))
}

func TestConnectConnectedVeto(t *testing.T) {
	r, m := newLoop(t, nil)
	ln := listenLoopback(t)

	rec := newRecorder(t)
	rec.veto[rsock.Connected] = errors.New("no")
	_, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()}, rec.callback, nil)
	require.NoError(t, err)
	tickUntil(t, r, rec.finished, time.Second)

	terminal := rec.terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, rsock.Connected, terminal[0].state)
	assert.True(t, isClosedFd(terminal[0].fd))
}

func TestConnectCloseWhilePending(t *testing.T) {
	r, m := newLoop(t, []reactor.Option{reactor.WithPoller(newMutePoller())})
	ln := listenLoopback(t)

	rec := newRecorder(t)
	sess, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()}, rec.callback, nil)
	require.NoError(t, err)
	require.NoError(t, r.Tick())
	fd := sess.Fd()
	require.GreaterOrEqual(t, fd, 0)
	assert.True(t, r.Registered(fd))

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	require.NoError(t, r.Tick())

	assert.Equal(t, []rsock.State{rsock.Socket}, rec.states())
	assert.Equal(t, rsock.Closing, sess.State())
	assert.False(t, r.Registered(fd))
	assert.Equal(t, 0, m.Len())
}

func TestConnectCancel(t *testing.T) {
	r, m := newLoop(t, nil)
	ln := listenLoopback(t)

	rec := newRecorder(t)
	rec.hook = func(e event) {
		if e.state == rsock.Socket {
			e.sess.Cancel()
		}
	}
	sess, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()}, rec.callback, nil)
	require.NoError(t, err)
	tickUntil(t, r, rec.finished, time.Second)

	assert.Equal(t, []rsock.State{rsock.Socket, rsock.SysError}, rec.states())
	assert.True(t, rsock.IsCanceled(sess.Err()))
}

func TestConnectReactorDestroyed(t *testing.T) {
	r, m := newLoop(t, []reactor.Option{reactor.WithPoller(newMutePoller())})
	ln := listenLoopback(t)

	rec := newRecorder(t)
	sess, err := m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()}, rec.callback, nil,
		rsock.WithTimeout(time.Minute),
	)
	require.NoError(t, err)
	require.NoError(t, r.Tick())

	r.Destroy()
	r.Destroy()

	terminal := rec.terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, rsock.SysError, terminal[0].state)
	assert.True(t, reactor.IsDestroyed(sess.Err()))
	assert.Equal(t, 0, m.Len())
}

func TestConnectUDP(t *testing.T) {
	_, m := newLoop(t, nil)
	peer, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer peer.Close()
	refused := closedAddrs(t, 1)

	rec := newRecorder(t)
	_, err = m.Open(nil, &rsock.Endpoint{Network: "udp", Address: peer.LocalAddr().String() + "," + refused[0]}, rec.callback, nil)
	require.NoError(t, err)

	// datagram connect is synchronous and only the first candidate is used
	assert.Equal(t, []rsock.State{rsock.Socket, rsock.Connected}, rec.states())
	snap := rec.events[1].snap
	require.NotNil(t, snap)
	assert.Equal(t, peer.LocalAddr().String(), snap.Remote.String())
	assert.IsType(t, &net.UDPAddr{}, snap.Local)
}

func TestOpenInvalid(t *testing.T) {
	_, m := newLoop(t, nil)
	rec := newRecorder(t)

	_, err := m.Open(nil, nil, rec.callback, nil)
	assert.ErrorIs(t, err, rsock.ErrInvalidArgument)
	_, err = m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: "127.0.0.1:1"}, nil, nil)
	assert.ErrorIs(t, err, rsock.ErrInvalidArgument)
	_, err = m.Open(&rsock.Endpoint{Network: "udp", Address: ":0"}, &rsock.Endpoint{Network: "tcp", Address: "127.0.0.1:1"}, rec.callback, nil)
	assert.ErrorIs(t, err, rsock.ErrInvalidArgument)
	_, err = m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: "nowhere"}, rec.callback, nil,
		rsock.WithResolver(sys.StaticResolver{}),
	)
	assert.ErrorIs(t, err, sys.ErrNoCandidates)
	assert.Empty(t, rec.events)

	require.NoError(t, m.Close())
	_, err = m.Open(nil, &rsock.Endpoint{Network: "tcp", Address: "127.0.0.1:1"}, rec.callback, nil)
	assert.True(t, rsock.IsClosed(err))
}

func TestDial(t *testing.T) {
	_, m := newLoop(t, nil)
	ln := listenLoopback(t)
	refused := closedAddrs(t, 1)

	fd, snap, err := m.Dial(context.Background(), nil, &rsock.Endpoint{Network: "tcp", Address: refused[0] + "," + ln.Addr().String()})
	require.NoError(t, err)
	defer closeFd(fd)
	assert.False(t, isClosedFd(fd))
	require.NotNil(t, snap)
	assert.Equal(t, ln.Addr().String(), snap.Remote.String())

	_, _, err = m.Dial(context.Background(), nil, &rsock.Endpoint{Network: "tcp", Address: refused[0]})
	assert.Error(t, err)
}

func TestDialContext(t *testing.T) {
	_, m := newLoop(t, []reactor.Option{reactor.WithPoller(newMutePoller())})
	ln := listenLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	fd, snap, err := m.Dial(ctx, nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()})
	assert.Error(t, err)
	assert.Equal(t, -1, fd)
	assert.Nil(t, snap)
	assert.Equal(t, 0, m.Len())
}

func TestDialNested(t *testing.T) {
	r, m := newLoop(t, nil)
	ln := listenLoopback(t)

	var (
		fd      = -1
		dialErr error
		dialing bool
		outer   int
	)
	// the dial runs inside an fd handler, its nested ticks end the outer one
	rfd, wfd := pipe(t)
	require.NoError(t, r.Register(rfd, func(r *reactor.Reactor, _ int, events reactor.Events, _ any, _ time.Time) {
		if !events.Any(reactor.EventRead) {
			return
		}
		_ = r.Unregister(rfd)
		dialing = true
		fd, _, dialErr = m.Dial(context.Background(), nil, &rsock.Endpoint{Network: "tcp", Address: ln.Addr().String()})
		dialing = false
	}, nil, reactor.EventRead))
	require.NoError(t, r.Register(wfd, func(_ *reactor.Reactor, _ int, events reactor.Events, _ any, _ time.Time) {
		if events.Any(reactor.EventWrite) && !dialing {
			outer++
		}
	}, nil, reactor.EventWrite))
	writeByte(t, wfd)

	gen := r.Generation()
	require.NoError(t, r.Tick())
	require.NoError(t, dialErr)
	defer closeFd(fd)
	assert.GreaterOrEqual(t, fd, 0)
	assert.Greater(t, r.Generation(), gen+1)
	assert.Equal(t, 0, outer)

	require.NoError(t, r.Tick())
	assert.Equal(t, 1, outer)
}
