package reactor

import (
	"go.uber.org/multierr"
	"slices"
	"sync/atomic"
	"time"
)

type TaskFlags uint8

const (
	// TaskDestroy is set on the single call a live task gets while the reactor
	// is being torn down.
	TaskDestroy TaskFlags = 1 << iota
)

// PollFunc runs on every tick. When recheck is true the next multiplexer wait
// is bounded by delay. The result of a TaskDestroy call is ignored.
type PollFunc func(r *Reactor, opaque any, now time.Time, flags TaskFlags) (delay time.Duration, recheck bool)

// IdleFunc runs only on ticks where no fd became ready.
type IdleFunc func(r *Reactor, opaque any, now time.Time, flags TaskFlags)

// DemandFunc runs on ticks where its flag is set. The reactor never clears the flag.
// On teardown it is called with TaskDestroy whatever the flag holds.
type DemandFunc func(r *Reactor, opaque any, now time.Time, flags TaskFlags)

type taskKind uint8

const (
	pollTask taskKind = iota
	idleTask
	demandTask
)

type Task struct {
	kind    taskKind
	poll    PollFunc
	idle    IdleFunc
	demand  DemandFunc
	flag    *atomic.Bool
	opaque  any
	removed bool
}

func (r *Reactor) AddPoll(fn PollFunc, opaque any) (*Task, error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	if r.flags.inDestroy {
		return nil, ErrDestroyed
	}
	t := &Task{kind: pollTask, poll: fn, opaque: opaque}
	r.polls = append(r.polls, t)
	return t, nil
}

func (r *Reactor) AddIdle(fn IdleFunc, opaque any) (*Task, error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	if r.flags.inDestroy {
		return nil, ErrDestroyed
	}
	t := &Task{kind: idleTask, idle: fn, opaque: opaque}
	r.idles = append(r.idles, t)
	return t, nil
}

func (r *Reactor) AddDemand(fn DemandFunc, opaque any, flag *atomic.Bool) (*Task, error) {
	if fn == nil || flag == nil {
		return nil, ErrInvalidArgument
	}
	if r.flags.inDestroy {
		return nil, ErrDestroyed
	}
	t := &Task{kind: demandTask, demand: fn, flag: flag, opaque: opaque}
	r.demands = append(r.demands, t)
	return t, nil
}

func (r *Reactor) RemoveTask(t *Task) error {
	if t == nil {
		return ErrInvalidArgument
	}
	var list *[]*Task
	switch t.kind {
	case pollTask:
		list = &r.polls
	case idleTask:
		list = &r.idles
	case demandTask:
		list = &r.demands
	}
	for i, task := range *list {
		if task == t {
			t.removed = true
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return nil
		}
	}
	return ErrTaskNotFound
}

func (r *Reactor) runDemands(now time.Time) {
	if len(r.demands) == 0 {
		return
	}
	tasks := slices.Clone(r.demands)
	for _, t := range tasks {
		if t.removed || !t.flag.Load() {
			continue
		}
		t.demand(r, t.opaque, now, 0)
	}
}

func (r *Reactor) runPolls(now time.Time) (delay time.Duration, bounded bool) {
	if len(r.polls) == 0 {
		return
	}
	tasks := slices.Clone(r.polls)
	for _, t := range tasks {
		if t.removed {
			continue
		}
		d, recheck := t.poll(r, t.opaque, now, 0)
		if !recheck {
			continue
		}
		if d < 0 {
			d = 0
		}
		if !bounded || d < delay {
			delay = d
			bounded = true
		}
	}
	return
}

func (r *Reactor) runIdles(now time.Time) {
	tasks := slices.Clone(r.idles)
	for _, t := range tasks {
		if t.removed {
			continue
		}
		t.idle(r, t.opaque, now, 0)
	}
}

// destroyTasks calls every live task once with TaskDestroy, polls first, then
// idles, then on-demand tasks.
func (r *Reactor) destroyTasks(now time.Time) (errs error) {
	tasks := make([]*Task, 0, len(r.polls)+len(r.idles)+len(r.demands))
	tasks = append(tasks, r.polls...)
	tasks = append(tasks, r.idles...)
	tasks = append(tasks, r.demands...)
	for _, t := range tasks {
		if t.removed {
			continue
		}
		errs = multierr.Append(errs, protect(func() {
			switch t.kind {
			case pollTask:
				_, _ = t.poll(r, t.opaque, now, TaskDestroy)
			case idleTask:
				t.idle(r, t.opaque, now, TaskDestroy)
			case demandTask:
				t.demand(r, t.opaque, now, TaskDestroy)
			}
		}))
	}
	r.polls, r.idles, r.demands = nil, nil, nil
	return
}
