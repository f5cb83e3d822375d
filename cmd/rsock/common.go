package main

import (
	"errors"
	"github.com/brickingsoft/rsock"
	"github.com/brickingsoft/rsock/pkg/metrics"
	"github.com/brickingsoft/rsock/pkg/process"
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"net/http"
	"time"
)

var (
	debug       bool
	network     string
	timeout     time.Duration
	metricsAddr string
	usePoll     bool
	cpu         int

	commonFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "debug, d",
			Usage:       "log every session step",
			EnvVar:      "RSOCK_DEBUG",
			Destination: &debug,
		},
		cli.StringFlag{
			Name:        "network, n",
			Usage:       "tcp, tcp4, tcp6, udp, udp4, udp6 or unix",
			Value:       "tcp",
			EnvVar:      "RSOCK_NETWORK",
			Destination: &network,
		},
		cli.DurationFlag{
			Name:        "timeout, t",
			Usage:       "bound of every connect attempt, or of the wait for the next connection (0 = none)",
			EnvVar:      "RSOCK_TIMEOUT",
			Destination: &timeout,
		},
		cli.StringFlag{
			Name:        "metrics-addr",
			Usage:       "serve prometheus metrics on this address",
			EnvVar:      "RSOCK_METRICS_ADDR",
			Destination: &metricsAddr,
		},
		cli.BoolFlag{
			Name:        "poll",
			Usage:       "use poll(2) instead of select(2)",
			EnvVar:      "RSOCK_POLL",
			Destination: &usePoll,
		},
		cli.IntFlag{
			Name:        "cpu",
			Usage:       "pin the reactor thread to this cpu (-1 = no pinning)",
			Value:       -1,
			EnvVar:      "RSOCK_CPU",
			Destination: &cpu,
		},
	}
)

// env is the reactor, manager and instrumentation shared by the commands.
type env struct {
	r     *reactor.Reactor
	m     *rsock.Manager
	log   *zap.Logger
	srv   *http.Server
	unpin func()
}

// setup must run on the goroutine that drives the reactor, it pins that
// goroutine's thread when --cpu is set.
func setup() (e *env, err error) {
	unpin, err := process.Pin(cpu)
	if err != nil {
		return
	}
	var logger *zap.Logger
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		unpin()
		return
	}
	reg := prometheus.NewRegistry()
	reactorOptions := []reactor.Option{
		reactor.WithLogger(logger),
		reactor.WithMetrics(metrics.NewReactor(reg)),
	}
	if usePoll {
		reactorOptions = append(reactorOptions, reactor.WithPoller(reactor.NewPollPoller()))
	}
	r, err := reactor.New(reactorOptions...)
	if err != nil {
		_ = logger.Sync()
		unpin()
		return
	}
	m, err := rsock.New(r,
		rsock.WithLogger(logger),
		rsock.WithMetrics(metrics.NewSessions(reg)),
		rsock.WithTimeout(timeout),
	)
	if err != nil {
		r.Destroy()
		_ = logger.Sync()
		unpin()
		return
	}
	e = &env{r: r, m: m, log: logger, unpin: unpin}
	if cpu >= 0 {
		logger.Debug("rsock: reactor pinned", zap.Int("cpu", cpu))
	}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		e.srv = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func(srv *http.Server, log *zap.Logger) {
			log.Info("rsock: metrics server", zap.String("addr", srv.Addr))
			if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				log.Error("rsock: metrics server", zap.Error(serveErr))
			}
		}(e.srv, logger)
	}
	return
}

func (e *env) close() {
	if e.srv != nil {
		_ = e.srv.Close()
	}
	if err := e.m.Close(); err != nil {
		e.log.Warn("rsock: close sessions", zap.Error(err))
	}
	e.r.Destroy()
	_ = e.log.Sync()
	e.unpin()
}
