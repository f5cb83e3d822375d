// Package reactor is a single-threaded cooperative event loop: fd readiness
// multiplexing, timers, poll/idle/on-demand tasks and synchronous signal
// dispatch, all driven by Tick.
//
// A Reactor is not safe for concurrent use. Only Wakeup may be called from
// other goroutines.
package reactor

import (
	"errors"
	"fmt"
	"github.com/brickingsoft/rsock/pkg/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"os"
	"sort"
	"time"
)

// NoTimeout makes a Poller wait indefinitely.
const NoTimeout time.Duration = -1

type flags struct {
	runOver   bool
	dontBlock bool
	inDestroy bool
}

type Reactor struct {
	poller      Poller
	maxFd       int
	log         *zap.Logger
	clock       func() time.Time
	metrics     *metrics.Reactor
	wake        *wakePipe
	fds         map[int]*registration
	canceled    map[int]bool
	timers      *timerQueue
	polls       []*Task
	idles       []*Task
	demands     []*Task
	signals     map[os.Signal]*signalEntry
	signalOrder []os.Signal
	flags       flags
	generation  uint64
	depth       int
}

func New(options ...Option) (r *Reactor, err error) {
	opts := Options{}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err = option(&opts); err != nil {
			err = newError(errMetaOpNew, "new reactor failed", err)
			return
		}
	}
	if opts.Poller == nil {
		opts.Poller = DefaultPoller()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	wake, wakeErr := newWakePipe()
	if wakeErr != nil {
		_ = opts.Poller.Close()
		err = newError(errMetaOpNew, "new reactor failed", wakeErr)
		return
	}
	maxFd := 0
	if limited, ok := opts.Poller.(Limited); ok {
		maxFd = limited.MaxFd()
	}
	if maxFd > 0 && wake.rfd >= maxFd {
		_ = wake.close()
		_ = opts.Poller.Close()
		err = newError(errMetaOpNew, "new reactor failed", ErrFdOutOfRange)
		return
	}
	r = &Reactor{
		poller:   opts.Poller,
		maxFd:    maxFd,
		log:      opts.Logger,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		wake:     wake,
		fds:      make(map[int]*registration),
		canceled: make(map[int]bool),
		timers:   newTimerQueue(),
		signals:  make(map[os.Signal]*signalEntry),
	}
	return
}

// Logger returns the logger the reactor was built with.
func (r *Reactor) Logger() *zap.Logger {
	return r.log
}

// Now returns the current time of the reactor clock.
func (r *Reactor) Now() time.Time {
	return r.clock()
}

// Depth returns how many ticks are on the stack, 0 outside of Tick.
func (r *Reactor) Depth() int {
	return r.depth
}

// Generation is bumped every time a tick completes.
func (r *Reactor) Generation() uint64 {
	return r.generation
}

// DontBlock makes the next multiplexer wait return immediately.
func (r *Reactor) DontBlock() {
	r.flags.dontBlock = true
}

// Stop makes Run return after the current tick.
func (r *Reactor) Stop() {
	r.flags.runOver = true
}

func (r *Reactor) Stopped() bool {
	return r.flags.runOver
}

func (r *Reactor) Destroyed() bool {
	return r.flags.inDestroy
}

// Run ticks until Stop is called or a tick fails.
func (r *Reactor) Run() (err error) {
	defer func() {
		r.flags.runOver = false
	}()
	for !r.flags.runOver {
		if err = r.Tick(); err != nil {
			return
		}
	}
	return
}

// Tick runs one iteration of the loop:
// on-demand tasks, poll tasks, due timers, the multiplexer wait, fd dispatch
// (or idle tasks when nothing was ready) and finally pending signals.
//
// A handler may call Tick itself. When the nested tick returns, the outer one
// abandons its remaining dispatches, their readiness is stale.
func (r *Reactor) Tick() (err error) {
	if r.flags.inDestroy {
		err = ErrDestroyed
		return
	}
	r.depth++
	defer func() {
		r.depth--
		r.generation++
		r.metrics.Tick()
	}()

	now := r.clock()
	r.runDemands(now)
	pollDelta, pollBounded := r.runPolls(now)
	fired := r.runTimers(now)
	r.metrics.TimersFired(fired)
	if r.flags.inDestroy {
		return
	}

	timeout := NoTimeout
	if pollBounded {
		timeout = pollDelta
	}
	if timerDelta, ok := r.timerDelta(now); ok && (timeout < 0 || timerDelta < timeout) {
		timeout = timerDelta
	}
	if timeout != 0 && (len(r.idles) > 0 || r.flags.dontBlock || r.flags.runOver) {
		timeout = 0
	}
	r.flags.dontBlock = false

	interests, watched := r.watchList()
	ready, waitErr := r.wait(interests, timeout)
	if waitErr != nil {
		r.metrics.PollError()
		err = newError(errMetaOpPoll, "reactor wait failed", waitErr)
		return
	}

	gen := r.generation
	now = r.clock()
	dispatched := 0
	for _, ev := range ready {
		if r.generation != gen || r.flags.inDestroy {
			// a nested tick consumed the rest of this one
			r.metrics.Dispatched(dispatched)
			return
		}
		if ev.Fd == r.wake.rfd {
			r.wake.drain()
			continue
		}
		reg, exist := r.fds[ev.Fd]
		if !exist || reg.closing || reg != watched[ev.Fd] {
			continue
		}
		dispatched++
		reg.handler(r, ev.Fd, ev.Events, reg.opaque, now)
	}
	r.metrics.Dispatched(dispatched)
	if r.generation != gen || r.flags.inDestroy {
		return
	}
	if dispatched == 0 && len(r.idles) > 0 {
		r.runIdles(now)
	}
	r.runSignals()
	return
}

// watchList snapshots the registrations handed to the multiplexer, the wake
// pipe included.
func (r *Reactor) watchList() ([]Interest, map[int]*registration) {
	interests := r.interests(make([]Interest, 0, len(r.fds)+1))
	watched := make(map[int]*registration, len(interests))
	for _, in := range interests {
		watched[in.Fd] = r.fds[in.Fd]
	}
	interests = append(interests, Interest{Fd: r.wake.rfd, Events: EventRead})
	r.metrics.Registered(len(r.fds))
	return interests, watched
}

// wait retries interrupted waits with the remaining timeout.
func (r *Reactor) wait(interests []Interest, timeout time.Duration) (ready []Interest, err error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		begin := time.Now()
		ready, err = r.poller.Poll(interests, timeout)
		r.metrics.Waited(time.Since(begin))
		if err == nil || !errors.Is(err, unix.EINTR) {
			return
		}
		if timeout > 0 {
			if timeout = time.Until(deadline); timeout < 0 {
				timeout = 0
			}
		}
	}
}

// Destroy tears the reactor down: every registration is notified with
// EventDestroy, every pending timer fires with TimerDestroy, every live task
// runs once with TaskDestroy, signal relays stop and the wake pipe and the
// poller are closed. Failures are logged,
// a second call does nothing.
func (r *Reactor) Destroy() {
	if r.flags.inDestroy {
		return
	}
	r.flags.inDestroy = true
	now := r.clock()
	var errs error

	fds := make([]int, 0, len(r.fds))
	for fd := range r.fds {
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	for _, fd := range fds {
		reg, exist := r.fds[fd]
		if !exist || reg.closing || reg.destroyed {
			continue
		}
		reg.destroyed = true
		errs = multierr.Append(errs, protect(func() {
			reg.handler(r, fd, EventDestroy, reg.opaque, now)
		}))
	}
	r.fds = make(map[int]*registration)
	r.canceled = make(map[int]bool)

	for _, t := range r.timers.drainAll() {
		if t.state != timerBatched {
			continue
		}
		errs = multierr.Append(errs, protect(func() {
			r.fireTimer(t, now, TimerDestroy)
		}))
	}

	errs = multierr.Append(errs, r.destroyTasks(now))
	r.stopSignals()
	errs = multierr.Append(errs, r.wake.close())
	errs = multierr.Append(errs, r.poller.Close())
	if errs != nil {
		r.log.Error("reactor: destroy", zap.Error(newError(errMetaOpDestroy, "destroy reactor failed", errs)))
	}
}

func protect(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	fn()
	return
}
