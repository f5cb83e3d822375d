package reactor_test

import (
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
	"testing"
	"time"
)

func newPipe(t *testing.T) (rfd int, wfd int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func backends() map[string]func() reactor.Poller {
	return map[string]func() reactor.Poller{
		"select": reactor.NewSelectPoller,
		"poll":   reactor.NewPollPoller,
	}
}

func TestPollerReadiness(t *testing.T) {
	for name, newPoller := range backends() {
		t.Run(name, func(t *testing.T) {
			poller := newPoller()
			defer poller.Close()
			rfd, wfd := newPipe(t)
			interests := []reactor.Interest{
				{Fd: rfd, Events: reactor.EventRead},
				{Fd: wfd, Events: reactor.EventWrite},
			}

			ready, err := poller.Poll(interests, 0)
			require.NoError(t, err)
			require.Len(t, ready, 1)
			assert.Equal(t, reactor.Interest{Fd: wfd, Events: reactor.EventWrite}, ready[0])

			_, err = unix.Write(wfd, []byte("x"))
			require.NoError(t, err)
			ready, err = poller.Poll(interests, time.Second)
			require.NoError(t, err)
			require.Len(t, ready, 2)
			assert.Equal(t, reactor.Interest{Fd: rfd, Events: reactor.EventRead}, ready[0])
		})
	}
}

func TestPollerTimeout(t *testing.T) {
	for name, newPoller := range backends() {
		t.Run(name, func(t *testing.T) {
			poller := newPoller()
			defer poller.Close()
			rfd, _ := newPipe(t)
			begin := time.Now()
			ready, err := poller.Poll([]reactor.Interest{{Fd: rfd, Events: reactor.EventRead}}, 30*time.Millisecond)
			require.NoError(t, err)
			assert.Empty(t, ready)
			assert.GreaterOrEqual(t, time.Since(begin), 25*time.Millisecond)
		})
	}
}

func TestPollerBadFd(t *testing.T) {
	for name, newPoller := range backends() {
		t.Run(name, func(t *testing.T) {
			poller := newPoller()
			defer poller.Close()
			var fds [2]int
			require.NoError(t, unix.Pipe(fds[:]))
			require.NoError(t, unix.Close(fds[0]))
			require.NoError(t, unix.Close(fds[1]))

			ready, err := poller.Poll([]reactor.Interest{{Fd: fds[0], Events: reactor.EventRead}}, 0)
			require.NoError(t, err)
			require.Len(t, ready, 1)
			assert.Equal(t, fds[0], ready[0].Fd)
			assert.True(t, ready[0].Events.Has(reactor.EventBadFd))
		})
	}
}

func TestSelectMaxFd(t *testing.T) {
	poller := reactor.NewSelectPoller()
	limited, ok := poller.(reactor.Limited)
	require.True(t, ok)
	assert.Equal(t, 1024, limited.MaxFd())
	_, ok = reactor.NewPollPoller().(reactor.Limited)
	assert.False(t, ok)
}

func TestReactorPipeEcho(t *testing.T) {
	for name, newPoller := range backends() {
		t.Run(name, func(t *testing.T) {
			r, err := reactor.New(reactor.WithPoller(newPoller()))
			require.NoError(t, err)
			defer r.Destroy()
			rfd, wfd := newPipe(t)

			var got []byte
			require.NoError(t, r.Register(rfd, func(r *reactor.Reactor, fd int, events reactor.Events, _ any, _ time.Time) {
				if !events.Any(reactor.EventRead) {
					return
				}
				buf := make([]byte, 16)
				n, readErr := unix.Read(fd, buf)
				if readErr == nil {
					got = append(got, buf[:n]...)
				}
				r.Stop()
			}, nil, reactor.EventRead))

			_, err = r.EnqueueAfter(10*time.Millisecond, func(_ *reactor.Reactor, _ any, _ time.Time, _ reactor.TimerFlags) {
				_, _ = unix.Write(wfd, []byte("ping"))
			}, nil)
			require.NoError(t, err)
			require.NoError(t, r.Run())
			assert.Equal(t, "ping", string(got))
		})
	}
}
