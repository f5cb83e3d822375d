package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/brickingsoft/rsock"
	"github.com/brickingsoft/rsock/pkg/reactor"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"
	"os"
)

var (
	bindAddr string

	connectFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "bind, b",
			Usage:       "local address to bind before connecting",
			EnvVar:      "RSOCK_BIND",
			Destination: &bindAddr,
		},
	}
)

func connect(ctx *cli.Context) (err error) {
	address := ctx.Args().First()
	if address == "" {
		return errors.New("no remote address provided")
	}
	e, err := setup()
	if err != nil {
		return
	}
	defer e.close()

	dialCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// an interrupt is relayed by the reactor between the ticks of the dial
	if err = e.r.HandleSignal(os.Interrupt, func(_ *reactor.Reactor, _ os.Signal, _ any) {
		cancel()
	}, nil); err != nil {
		return
	}

	var local *rsock.Endpoint
	if bindAddr != "" {
		local = &rsock.Endpoint{Network: network, Address: bindAddr}
	}
	fd, snap, err := e.m.Dial(dialCtx, local, &rsock.Endpoint{Network: network, Address: address})
	if err != nil {
		return
	}
	defer unix.Close(fd)
	fmt.Fprintf(ctx.App.Writer, "connected %s -> %s\n", snap.Local, snap.Remote)
	return
}
