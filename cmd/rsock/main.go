package main

import (
	"fmt"
	"github.com/urfave/cli"
	"io"
	"os"
)

const version = "0.1.0"

const DESCRIPTION = `rsock drives the socket reactor from the command line.
It connects to an ordered list of candidate addresses, or listens and
accepts, printing every resolved socket.`

func Execute(args []string, out io.Writer) error {
	app := cli.App{
		Name:        "rsock",
		HelpName:    "rsock",
		Usage:       "probe connect and listen sequences",
		Version:     version,
		UsageText:   "rsock <command> [arguments...]",
		Description: DESCRIPTION,
		Writer:      out,
		ErrWriter:   out,
		Flags:       commonFlags,
		Commands: []cli.Command{
			{
				Name:      "connect",
				Aliases:   []string{"c"},
				Usage:     "connect to the first reachable candidate",
				UsageText: "rsock connect [flags] host:port[,host:port...]",
				Action:    connect,
				Flags:     connectFlags,
			},
			{
				Name:      "listen",
				Aliases:   []string{"l"},
				Usage:     "bind, listen and accept connections",
				UsageText: "rsock listen [flags] host:port[,host:port...]",
				Action:    listen,
				Flags:     listenFlags,
			},
		},
	}
	return app.Run(args)
}

func main() {
	if err := Execute(os.Args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "rsock: %s\n", err.Error())
		os.Exit(1)
	}
}
