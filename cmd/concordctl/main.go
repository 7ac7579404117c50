package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
)

const defaultServerURL = "http://localhost:8001"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:                  "concordctl",
		Usage:                 "Inspect and control processes on a Concord server",
		Version:               version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Base URL of the Concord server",
				Value:   defaultServerURL,
				Sources: cli.EnvVars("CONCORD_SERVER_URL"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent in the Authorization header",
				Sources: cli.EnvVars("CONCORD_API_KEY"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout of a single request to the server",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("CONCORD_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Commands: []*cli.Command{
			NewProcessCommand(),
			NewServeCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
