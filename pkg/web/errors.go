package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/dukex/concordctl/pkg/client"
	"github.com/dukex/concordctl/pkg/process"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleServiceError maps process and backend errors to problem documents.
// Backend 401, 403 and 404 are passed through; any other backend failure is a 502.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case process.IsValidationError(err):
		return badRequest(c, err.Error())

	case process.IsNotCancellable(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("not_cancellable").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case client.IsNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("process_not_found").
			WithDetail(backendDetail(err, "process not found"))

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case client.IsUnauthorized(err):
		code, _ := client.StatusCode(err)

		problem := problems.NewStatusProblem(code).
			WithInstance(c.Path()).
			WithType("unauthorized").
			WithDetail(backendDetail(err, http.StatusText(code)))

		return c.Status(code).JSON(problem)

	case errors.Is(err, context.DeadlineExceeded):
		problem := problems.NewStatusProblem(504).
			WithInstance(c.Path()).
			WithType("backend_timeout").
			WithError(err)

		return c.Status(fiber.StatusGatewayTimeout).JSON(problem)

	default:
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("backend_error").
			WithError(err)

		return c.Status(fiber.StatusBadGateway).JSON(problem)
	}
}

func backendDetail(err error, fallback string) string {
	var requestErr *client.RequestError
	if errors.As(err, &requestErr) && requestErr.Message != "" {
		return requestErr.Message
	}

	return fallback
}
