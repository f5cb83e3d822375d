package reactor

import (
	"os"
	"os/signal"
	"sync/atomic"
)

type SignalFunc func(r *Reactor, sig os.Signal, opaque any)

type signalEntry struct {
	sig     os.Signal
	fn      SignalFunc
	opaque  any
	pending atomic.Int64
	ch      chan os.Signal
	done    chan struct{}
	stopped bool
}

// relay counts deliveries and wakes the reactor. The handler itself only
// ever runs on the reactor goroutine, in the last step of a tick.
func (e *signalEntry) relay(wake *wakePipe) {
	for {
		select {
		case <-e.ch:
			e.pending.Add(1)
			_ = wake.wakeup()
		case <-e.done:
			return
		}
	}
}

func (e *signalEntry) stop() {
	if e.stopped {
		return
	}
	e.stopped = true
	signal.Stop(e.ch)
	close(e.done)
}

// HandleSignal dispatches sig to fn once per delivery. Registering a signal
// again replaces the handler and keeps the pending count.
func (r *Reactor) HandleSignal(sig os.Signal, fn SignalFunc, opaque any) error {
	if sig == nil || fn == nil {
		return ErrInvalidArgument
	}
	if r.flags.inDestroy {
		return ErrDestroyed
	}
	if e, exist := r.signals[sig]; exist {
		e.fn = fn
		e.opaque = opaque
		return nil
	}
	e := &signalEntry{
		sig:    sig,
		fn:     fn,
		opaque: opaque,
		ch:     make(chan os.Signal, 8),
		done:   make(chan struct{}),
	}
	signal.Notify(e.ch, sig)
	go e.relay(r.wake)
	r.signals[sig] = e
	r.signalOrder = append(r.signalOrder, sig)
	return nil
}

// IgnoreSignal drops the handler of sig, discards pending deliveries and
// makes the process ignore sig from now on.
func (r *Reactor) IgnoreSignal(sig os.Signal) error {
	if sig == nil {
		return ErrInvalidArgument
	}
	if e, exist := r.signals[sig]; exist {
		e.stop()
		delete(r.signals, sig)
		for i, s := range r.signalOrder {
			if s == sig {
				r.signalOrder = append(r.signalOrder[:i:i], r.signalOrder[i+1:]...)
				break
			}
		}
	}
	signal.Ignore(sig)
	return nil
}

// PendingSignals lists the handled signals delivered since the last tick.
func (r *Reactor) PendingSignals() []os.Signal {
	var sigs []os.Signal
	for _, sig := range r.signalOrder {
		if e, exist := r.signals[sig]; exist && e.pending.Load() > 0 {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

func (r *Reactor) runSignals() {
	if len(r.signalOrder) == 0 {
		return
	}
	order := append([]os.Signal(nil), r.signalOrder...)
	for _, sig := range order {
		e, exist := r.signals[sig]
		if !exist {
			continue
		}
		n := e.pending.Swap(0)
		for i := int64(0); i < n; i++ {
			if e.stopped {
				break
			}
			r.metrics.Signal(sig.String())
			e.fn(r, sig, e.opaque)
		}
	}
}

func (r *Reactor) stopSignals() {
	for _, sig := range r.signalOrder {
		if e, exist := r.signals[sig]; exist {
			e.stop()
		}
	}
	r.signals = make(map[os.Signal]*signalEntry)
	r.signalOrder = nil
}
