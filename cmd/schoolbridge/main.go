package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "schoolbridge",
		Usage: "Server-side rendered marketplace for rural school needs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-prefix",
				Aliases: []string{"p"},
				Usage:   "Environment variable prefix",
				Value:   "SCHOOLBRIDGE",
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			seedCommand,
			syncCommand,
			fetchCommand,
			demoTokenCommand,
			keygenCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
