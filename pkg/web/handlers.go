package web

import (
	"strconv"
	"strings"

	"github.com/dukex/concordctl/pkg/models"
	"github.com/dukex/concordctl/pkg/process"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const metaQueryPrefix = "meta."

type APIHandlers struct {
	processService *process.Service
	validator      *validator.Validate
}

func NewAPIHandlers(processService *process.Service, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		processService: processService,
		validator:      validator,
	}
}

func (h *APIHandlers) ListProcesses(c fiber.Ctx) error {
	query, err := h.parseListQuery(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	page, err := h.processService.List(c.Context(), *query)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformProcessPage(page))
}

// parseListQuery reads the list filters. tags and include may be repeated,
// meta.<key> parameters become metadata filters.
func (h *APIHandlers) parseListQuery(c fiber.Ctx) (*models.ProcessListQuery, error) {
	query := &models.ProcessListQuery{
		OrgName:         c.Query("orgName"),
		ProjectName:     c.Query("projectName"),
		AfterCreatedAt:  c.Query("afterCreatedAt"),
		BeforeCreatedAt: c.Query("beforeCreatedAt"),
		Initiator:       c.Query("initiator"),
		Tags:            queryValues(c, "tags"),
	}

	var err error

	if query.OrgID, err = optionalUUID(c, "orgId"); err != nil {
		return nil, err
	}

	if query.ProjectID, err = optionalUUID(c, "projectId"); err != nil {
		return nil, err
	}

	if query.ParentInstanceID, err = optionalUUID(c, "parentInstanceId"); err != nil {
		return nil, err
	}

	if statusStr := c.Query("status"); statusStr != "" {
		if query.Status, err = models.ParseProcessStatus(statusStr); err != nil {
			return nil, err
		}
	}

	if query.Include, err = models.ParseIncludes(queryValues(c, "include")); err != nil {
		return nil, err
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := models.ParseLimit(limitStr)
		if err != nil {
			return nil, err
		}

		query.Limit = &limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if query.Offset, err = strconv.Atoi(offsetStr); err != nil {
			return nil, err
		}
	}

	c.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		name, found := strings.CutPrefix(string(key), metaQueryPrefix)
		if !found || name == "" {
			return
		}

		if query.Meta == nil {
			query.Meta = map[string]string{}
		}

		query.Meta[name] = string(value)
	})

	if err := h.validator.Struct(query); err != nil {
		return nil, err
	}

	return query, nil
}

func (h *APIHandlers) GetProcess(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid process ID")
	}

	include, err := models.ParseIncludes(queryValues(c, "include"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	entry, err := h.processService.Get(c.Context(), id, include...)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformProcessResponse(*entry))
}

func (h *APIHandlers) StartProcess(c fiber.Ctx) error {
	var req models.StartProcessRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	response, err := h.processService.Start(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *APIHandlers) DisableProcess(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid process ID")
	}

	disabled, err := strconv.ParseBool(c.Params("disabled"))
	if err != nil {
		return badRequest(c, "disabled must be true or false")
	}

	if err := h.processService.Disable(c.Context(), id, disabled); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// KillProcess cancels a single process. Processes whose status does not allow
// cancellation are refused with 409.
func (h *APIHandlers) KillProcess(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid process ID")
	}

	if _, err := h.processService.Cancel(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) KillProcesses(c fiber.Ctx) error {
	var ids []uuid.UUID
	if err := c.Bind().JSON(&ids); err != nil {
		return badRequest(c, "Body must be a JSON array of process IDs")
	}

	if err := h.processService.KillBulk(c.Context(), ids); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func queryValues(c fiber.Ctx, key string) []string {
	raw := c.Request().URI().QueryArgs().PeekMulti(key)
	if len(raw) == 0 {
		return nil
	}

	values := make([]string, 0, len(raw))
	for _, value := range raw {
		values = append(values, string(value))
	}

	return values
}

func optionalUUID(c fiber.Ctx, key string) (*uuid.UUID, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}

	return &id, nil
}
