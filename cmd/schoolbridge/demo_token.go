package main

import (
	"context"
	"fmt"

	"schoolbridge/internal/auth"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var demoTokenCommand = &cli.Command{
	Name:  "demo-token",
	Usage: "Sign in as a demo persona and print the decoded token",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "role",
			Aliases: []string{"r"},
			Usage:   "Demo persona: school, company or rural_school",
			Value:   string(auth.DemoSchool),
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "Also print the encoded token",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		authn, _ := newBackend(cfg, logrus.StandardLogger(), nil)

		result, err := authn.DemoLogin(context.Background(), auth.DemoRole(c.String("role")))
		if err != nil {
			return err
		}

		pp.Println(result.User)

		if exp, ok := auth.TokenExpiry(result.Token); ok {
			fmt.Println("expires:", exp.Local().Format("2006-01-02 15:04:05"))
		}

		if c.Bool("raw") {
			fmt.Println(result.Token)
		}

		return nil
	},
}
