package main

import (
	"context"
	"fmt"

	"schoolbridge/internal/api"
	"schoolbridge/internal/auth"
	"schoolbridge/internal/fallback"
	"schoolbridge/internal/resource"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var fetchCommand = &cli.Command{
	Name:  "fetch",
	Usage: "Call one backend endpoint through the API client and print the response",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "endpoint",
			Aliases:  []string{"e"},
			Usage:    "Endpoint path, e.g. /school_needs or /schools?query=花蓮",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "role",
			Aliases: []string{"r"},
			Usage:   "Sign in as a demo persona first (school, company, rural_school)",
		},
		&cli.IntFlag{
			Name:  "retry",
			Usage: "Refetch up to this many times after a failed call",
			Value: 0,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		authn, client := newBackend(cfg, logrus.StandardLogger(), fallback.NewStatic())

		if role := c.String("role"); role != "" {
			result, err := authn.DemoLogin(ctx, auth.DemoRole(role))
			if err != nil {
				return err
			}
			ctx = api.WithToken(ctx, result.Token)
		}

		loader := resource.New(
			resource.ForEndpoint[any](client, c.String("endpoint")),
			resource.OnSuccess(func(decoded any) {
				if client.Offline() {
					logrus.Warn("backend unavailable, printed data is fallback data")
				}
				pp.Println(decoded)
			}),
			resource.OnError[any](func(err error) {
				logrus.WithError(err).WithField("endpoint", c.String("endpoint")).Warn("fetch failed")
			}),
		)

		snap := loader.Load(ctx)
		for attempt := 0; snap.State == resource.StateError && attempt < c.Int("retry"); attempt++ {
			<-loader.Refetch(ctx)
			snap = loader.Snapshot()
		}

		if snap.Err != nil {
			return snap.Err
		}

		return nil
	},
}
