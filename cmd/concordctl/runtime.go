package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/concordctl/pkg/client"
	"github.com/dukex/concordctl/pkg/log"
	"github.com/dukex/concordctl/pkg/metrics"
	"github.com/dukex/concordctl/pkg/otelhelper"
	"github.com/dukex/concordctl/pkg/process"
	cli "github.com/urfave/cli/v3"
)

const serviceName = "concordctl"

// runtime holds what every subcommand needs to talk to the server.
type runtime struct {
	logger  *slog.Logger
	service *process.Service
	close   func()
}

// newRuntime configures logging and tracing from the global flags and builds the process service.
// backendMetrics may be nil.
func newRuntime(ctx context.Context, command *cli.Command, module string, backendMetrics *metrics.Backend) (*runtime, error) {
	log.Setup(command.String("log-level"))

	logger := log.WithModule(module)
	closers := []func(){}

	if command.Bool("tracing") {
		tracerProvider, err := otelhelper.InitTracer(ctx, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		closers = append(closers, func() {
			if err := tracerProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		})
	}

	c, err := client.New(command.String("server"),
		client.WithAPIKey(command.String("api-key")),
		client.WithTimeout(command.Duration("timeout")),
		client.WithUserAgent(serviceName+"/"+command.Root().Version),
		client.WithMetrics(backendMetrics),
	)
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "Using server", "url", c.BaseURL())

	return &runtime{
		logger:  logger,
		service: process.NewService(c, backendMetrics),
		close: func() {
			for _, closeFn := range closers {
				closeFn()
			}
		},
	}, nil
}
