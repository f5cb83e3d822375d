// Package metrics holds the prometheus collectors of the reactor and the
// connection machine. Every method is safe on a nil receiver, so callers
// never check whether instrumentation was configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

const namespace = "rsock"

type Reactor struct {
	ticks      prometheus.Counter
	dispatched prometheus.Counter
	timers     prometheus.Counter
	signals    *prometheus.CounterVec
	pollErrors prometheus.Counter
	registered prometheus.Gauge
	wait       prometheus.Histogram
}

// NewReactor registers the reactor collectors on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewReactor(reg prometheus.Registerer) *Reactor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Reactor{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "ticks_total",
			Help:      "Total number of completed reactor ticks",
		}),
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "dispatched_total",
			Help:      "Total number of fd handler dispatches",
		}),
		timers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "timers_fired_total",
			Help:      "Total number of fired timers",
		}),
		signals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "signals_total",
			Help:      "Total number of relayed signal dispatches",
		}, []string{"signal"}),
		pollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "poll_errors_total",
			Help:      "Total number of multiplexer failures surfaced by a tick",
		}),
		registered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "registered_fds",
			Help:      "Number of fds in the registry",
		}),
		wait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reactor",
			Name:      "wait_seconds",
			Help:      "Time spent blocked in the multiplexer",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

func (m *Reactor) Tick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

func (m *Reactor) Dispatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dispatched.Add(float64(n))
}

func (m *Reactor) TimersFired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.timers.Add(float64(n))
}

func (m *Reactor) Signal(name string) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(name).Inc()
}

func (m *Reactor) PollError() {
	if m == nil {
		return
	}
	m.pollErrors.Inc()
}

func (m *Reactor) Registered(n int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(n))
}

func (m *Reactor) Waited(d time.Duration) {
	if m == nil {
		return
	}
	m.wait.Observe(d.Seconds())
}

type Sessions struct {
	attempts    prometheus.Counter
	transitions *prometheus.CounterVec
	active      prometheus.Gauge
	accepted    prometheus.Counter
	connect     prometheus.Histogram
}

// NewSessions registers the connection machine collectors on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewSessions(reg prometheus.Registerer) *Sessions {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Sessions{
		attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "candidate_attempts_total",
			Help:      "Total number of candidate addresses attempted",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Total number of delivered session states",
		}, []string{"state"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of live sessions",
		}),
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "accepted_total",
			Help:      "Total number of accepted child connections",
		}),
		connect: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "connect_seconds",
			Help:      "Time from open to Connected of active sessions",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}
}

func (m *Sessions) Attempt() {
	if m == nil {
		return
	}
	m.attempts.Inc()
}

func (m *Sessions) Transition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state).Inc()
}

func (m *Sessions) Opened() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Sessions) Finished() {
	if m == nil {
		return
	}
	m.active.Dec()
}

func (m *Sessions) Accepted() {
	if m == nil {
		return
	}
	m.accepted.Inc()
}

func (m *Sessions) Connected(d time.Duration) {
	if m == nil {
		return
	}
	m.connect.Observe(d.Seconds())
}
