package main

import (
	"errors"
	"fmt"
	"github.com/brickingsoft/rsock"
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"os"
	"syscall"
	"time"
)

var (
	backlog int
	count   int
	report  time.Duration

	listenFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "backlog",
			Usage:       "listen backlog (0 = system maximum)",
			EnvVar:      "RSOCK_BACKLOG",
			Destination: &backlog,
		},
		cli.IntFlag{
			Name:        "count, c",
			Usage:       "exit after accepting this many connections (0 = never)",
			Destination: &count,
		},
		cli.DurationFlag{
			Name:        "report",
			Usage:       "log the accepted count at this interval (0 = never)",
			Destination: &report,
		},
	}
)

type listenState struct {
	e        *env
	out      func(format string, args ...any)
	accepted int
	failure  error
}

func (ls *listenState) callback(_ any, fd int, snap *rsock.Snapshot, sess *rsock.Session, state rsock.State) error {
	switch state {
	case rsock.Ready:
		ls.out("listening %s\n", snap.Local)
		break
	case rsock.Connected:
		ls.out("accepted %s <- %s\n", snap.Local, snap.Remote)
		_ = unix.Close(fd)
		ls.accepted++
		if count > 0 && ls.accepted >= count {
			ls.e.r.Stop()
		}
		break
	default:
		if state.Failed() {
			ls.failure = sess.Err()
			ls.e.r.Stop()
		}
		break
	}
	return nil
}

func listen(ctx *cli.Context) (err error) {
	address := ctx.Args().First()
	if address == "" {
		return errors.New("no local address provided")
	}
	e, err := setup()
	if err != nil {
		return
	}
	defer e.close()

	ls := &listenState{
		e: e,
		out: func(format string, args ...any) {
			fmt.Fprintf(ctx.App.Writer, format, args...)
		},
	}
	stop := func(r *reactor.Reactor, sig os.Signal, _ any) {
		e.log.Info("rsock: stopping", zap.Stringer("signal", sig))
		r.Stop()
	}
	for _, sig := range []os.Signal{os.Interrupt, syscall.SIGTERM} {
		if err = e.r.HandleSignal(sig, stop, nil); err != nil {
			return
		}
	}
	if report > 0 {
		if _, err = e.r.EnqueueCron(report, func(_ *reactor.Reactor, _ any, _ time.Time, flags reactor.TimerFlags) {
			if flags&reactor.TimerDestroy != 0 {
				return
			}
			e.log.Info("rsock: accepted", zap.Int("count", ls.accepted))
		}, nil); err != nil {
			return
		}
	}

	sess, err := e.m.Open(&rsock.Endpoint{Network: network, Address: address}, nil, ls.callback, nil, rsock.WithBacklog(backlog))
	if err != nil {
		return
	}
	if err = e.r.Run(); err != nil {
		return
	}
	_ = sess.Close()
	err = ls.failure
	return
}
