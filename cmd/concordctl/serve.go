package main

import (
	"context"

	"github.com/dukex/concordctl/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the console gateway",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the gateway on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			rt, err := newRuntime(ctx, command, "gateway", metrics.NewBackend("concordctl", registry))
			if err != nil {
				return err
			}
			defer rt.close()

			rt.logger.InfoContext(ctx, "Initializing console gateway")

			api := NewAPI(rt.logger, rt.service, registry)

			return api.Start(command.Int("port"))
		},
	}
}
