package reactor_test

import (
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

// fds far above anything the test process opens, so they never collide with
// the wake pipe of the reactor
const (
	fakeFdA = 5001
	fakeFdB = 5002
	fakeFdC = 5003
)

type pollStep struct {
	ready []reactor.Interest
	err   error
	hook  func()
}

type scriptedPoller struct {
	steps     []pollStep
	timeouts  []time.Duration
	interests [][]reactor.Interest
	closed    int
}

func (p *scriptedPoller) Poll(interests []reactor.Interest, timeout time.Duration) ([]reactor.Interest, error) {
	p.timeouts = append(p.timeouts, timeout)
	p.interests = append(p.interests, append([]reactor.Interest(nil), interests...))
	if len(p.steps) == 0 {
		return nil, nil
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	if step.hook != nil {
		step.hook()
	}
	return step.ready, step.err
}

func (p *scriptedPoller) Close() error {
	p.closed++
	return nil
}

func (p *scriptedPoller) script(steps ...pollStep) {
	p.steps = append(p.steps, steps...)
}

// watched returns the interest of fd handed to the last Poll call.
func (p *scriptedPoller) watched(fd int) (reactor.Events, bool) {
	if len(p.interests) == 0 {
		return 0, false
	}
	for _, in := range p.interests[len(p.interests)-1] {
		if in.Fd == fd {
			return in.Events, true
		}
	}
	return 0, false
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newScripted(t *testing.T) (*reactor.Reactor, *scriptedPoller, *fakeClock) {
	t.Helper()
	poller := &scriptedPoller{}
	clock := newFakeClock()
	r, err := reactor.New(reactor.WithPoller(poller), reactor.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(r.Destroy)
	return r, poller, clock
}

func nopHandler(_ *reactor.Reactor, _ int, _ reactor.Events, _ any, _ time.Time) {}

type handlerCall struct {
	fd     int
	events reactor.Events
	opaque any
}

type handlerLog struct {
	calls []handlerCall
}

func (l *handlerLog) handler(_ *reactor.Reactor, fd int, events reactor.Events, opaque any, _ time.Time) {
	l.calls = append(l.calls, handlerCall{fd: fd, events: events, opaque: opaque})
}

func (l *handlerLog) count(events reactor.Events) int {
	n := 0
	for _, c := range l.calls {
		if c.events.Has(events) {
			n++
		}
	}
	return n
}
