package reactor

import (
	"container/heap"
	"github.com/eapache/queue"
	"time"
)

type TimerFlags uint8

const (
	// TimerDestroy is set when the timer fires because the reactor is being torn down.
	TimerDestroy TimerFlags = 1 << iota
)

type TimerFunc func(r *Reactor, opaque any, now time.Time, flags TimerFlags)

type timerState uint8

const (
	timerIdle timerState = iota
	timerQueued
	timerBatched
	timerDone
)

// Timer is the handle of a scheduled callback.
// A cron timer keeps the same handle across its re-arms.
type Timer struct {
	deadline time.Time
	seq      uint64
	index    int
	state    timerState
	interval time.Duration
	cb       TimerFunc
	opaque   any
}

func (t *Timer) Deadline() time.Time {
	return t.deadline
}

func (t *Timer) Interval() time.Duration {
	return t.interval
}

func (t *Timer) Pending() bool {
	return t.state == timerQueued || t.state == timerBatched
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// timerQueue orders timers by deadline, FIFO among equal deadlines.
// Due timers are moved into batch before any of them fires, so timers
// scheduled by a firing callback wait for the next drain.
type timerQueue struct {
	heap  timerHeap
	seq   uint64
	batch *queue.Queue
}

func newTimerQueue() *timerQueue {
	return &timerQueue{
		heap:  make(timerHeap, 0, 8),
		batch: queue.New(),
	}
}

func (q *timerQueue) push(t *Timer) {
	q.seq++
	t.seq = q.seq
	t.state = timerQueued
	heap.Push(&q.heap, t)
}

func (q *timerQueue) remove(t *Timer) bool {
	switch t.state {
	case timerQueued:
		heap.Remove(&q.heap, t.index)
		t.state = timerDone
		return true
	case timerBatched:
		// still referenced by the batch, skipped when reached
		t.state = timerDone
		return true
	default:
		return false
	}
}

func (q *timerQueue) collect(now time.Time) int {
	n := 0
	for len(q.heap) > 0 && !q.heap[0].deadline.After(now) {
		t := heap.Pop(&q.heap).(*Timer)
		t.state = timerBatched
		q.batch.Add(t)
		n++
	}
	return n
}

func (q *timerQueue) nextBatched() (*Timer, bool) {
	for q.batch.Length() > 0 {
		t := q.batch.Remove().(*Timer)
		if t.state == timerBatched {
			return t, true
		}
	}
	return nil, false
}

func (q *timerQueue) next() (*Timer, bool) {
	if len(q.heap) == 0 {
		return nil, false
	}
	return q.heap[0], true
}

func (q *timerQueue) len() int {
	return len(q.heap)
}

// drainAll empties the heap and the batch in firing order. Returned timers
// stay batched so a Dequeue issued while they fire still takes effect.
func (q *timerQueue) drainAll() []*Timer {
	timers := make([]*Timer, 0, q.batch.Length()+len(q.heap))
	for {
		t, ok := q.nextBatched()
		if !ok {
			break
		}
		timers = append(timers, t)
	}
	for len(q.heap) > 0 {
		t := heap.Pop(&q.heap).(*Timer)
		t.state = timerBatched
		timers = append(timers, t)
	}
	return timers
}

// EnqueueAt schedules cb to run on the first tick whose start is at or after deadline.
func (r *Reactor) EnqueueAt(deadline time.Time, cb TimerFunc, opaque any) (*Timer, error) {
	if cb == nil {
		return nil, ErrInvalidArgument
	}
	if r.flags.inDestroy {
		return nil, ErrDestroyed
	}
	t := &Timer{
		deadline: deadline,
		index:    -1,
		state:    timerIdle,
		cb:       cb,
		opaque:   opaque,
	}
	r.timers.push(t)
	return t, nil
}

func (r *Reactor) EnqueueAfter(delta time.Duration, cb TimerFunc, opaque any) (*Timer, error) {
	if delta < 0 {
		delta = 0
	}
	return r.EnqueueAt(r.clock().Add(delta), cb, opaque)
}

// EnqueueCron schedules cb every interval. The next occurrence is queued
// before cb runs, so cb may Dequeue its own handle to stop the cron.
func (r *Reactor) EnqueueCron(interval time.Duration, cb TimerFunc, opaque any) (*Timer, error) {
	if interval <= 0 {
		return nil, ErrInvalidArgument
	}
	t, err := r.EnqueueAfter(interval, cb, opaque)
	if err != nil {
		return nil, err
	}
	t.interval = interval
	return t, nil
}

// Dequeue cancels a pending timer. It returns ErrTimerNotQueued when the
// timer already fired or was dequeued before.
func (r *Reactor) Dequeue(t *Timer) error {
	if t == nil {
		return ErrInvalidArgument
	}
	if !r.timers.remove(t) {
		return ErrTimerNotQueued
	}
	return nil
}

func (r *Reactor) runTimers(now time.Time) (fired int) {
	r.timers.collect(now)
	for {
		t, ok := r.timers.nextBatched()
		if !ok {
			break
		}
		r.fireTimer(t, now, 0)
		fired++
	}
	return
}

func (r *Reactor) fireTimer(t *Timer, now time.Time, flags TimerFlags) {
	t.state = timerDone
	if t.interval > 0 && flags&TimerDestroy == 0 {
		t.deadline = now.Add(t.interval)
		r.timers.push(t)
	}
	t.cb(r, t.opaque, now, flags)
}

// timerDelta reports how long until the earliest pending timer is due.
func (r *Reactor) timerDelta(now time.Time) (time.Duration, bool) {
	t, ok := r.timers.next()
	if !ok {
		return 0, false
	}
	d := t.deadline.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
