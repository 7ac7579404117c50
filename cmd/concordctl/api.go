package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/concordctl/pkg/process"
	"github.com/dukex/concordctl/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API is the console gateway: a JSON front for the process endpoints of the server.
type API struct {
	logger   *slog.Logger
	service  *process.Service
	gatherer prometheus.Gatherer
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	service *process.Service,
	gatherer prometheus.Gatherer,
) *API {
	return &API{
		logger:   logger,
		service:  service,
		gatherer: gatherer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.service, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("concordctl gateway")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))

	p := app.Group("/processes")
	p.Get("/", handlers.ListProcesses)
	p.Post("/", handlers.StartProcess)
	p.Delete("/", handlers.KillProcesses)
	p.Get("/:id", handlers.GetProcess)
	p.Delete("/:id", handlers.KillProcess)
	p.Post("/:id/disable/:disabled", handlers.DisableProcess)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Gateway listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
