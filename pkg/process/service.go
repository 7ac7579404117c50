// Package process implements the process operations of the orchestration backend:
// paginated listing, lookup, start, disable and cancellation.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukex/concordctl/pkg/client"
	"github.com/dukex/concordctl/pkg/log"
	"github.com/dukex/concordctl/pkg/metrics"
	"github.com/dukex/concordctl/pkg/models"
	"github.com/dukex/concordctl/pkg/otelhelper"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	listPath  = "/api/v2/process"
	startPath = "/api/v1/process"
	bulkPath  = "/api/v1/process/bulk"
)

// Backend sends a single request to the orchestration backend. *client.Client implements it.
type Backend interface {
	Do(ctx context.Context, req client.Request, out any) error
}

type Service struct {
	backend  Backend
	metrics  *metrics.Backend
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewService creates a process service. pageMetrics may be nil.
func NewService(backend Backend, pageMetrics *metrics.Backend) *Service {
	return &Service{
		backend:  backend,
		metrics:  pageMetrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		tracer:   otelhelper.Tracer(),
		logger:   log.WithModule("process"),
	}
}

// Start submits a new process built from a repository entry point.
func (s *Service) Start(ctx context.Context, req models.StartProcessRequest) (*models.StartProcessResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, &Error{Op: "Start", Err: fmt.Errorf("%w: %w", ErrInvalidRequest, err)}
	}

	fields := []client.FormField{
		{Name: "org", Value: req.Org},
		{Name: "project", Value: req.Project},
		{Name: "repo", Value: req.Repo},
	}

	if req.EntryPoint != "" {
		fields = append(fields, client.FormField{Name: "entryPoint", Value: req.EntryPoint})
	}

	if req.ActiveProfiles != "" {
		fields = append(fields, client.FormField{Name: "activeProfiles", Value: req.ActiveProfiles})
	}

	body, contentType, err := client.MultipartBody(fields)
	if err != nil {
		return nil, &Error{Op: "Start", Err: err}
	}

	var response models.StartProcessResponse

	err = s.backend.Do(ctx, client.Request{
		Method:      http.MethodPost,
		Path:        startPath,
		Body:        body,
		ContentType: contentType,
		Operation:   "process.start",
	}, &response)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Process started",
		"instance_id", response.InstanceID,
		"org", req.Org,
		"project", req.Project,
		"repo", req.Repo,
	)

	return &response, nil
}

// Get loads a single process, optionally populating the requested nested collections.
func (s *Service) Get(ctx context.Context, id uuid.UUID, include ...models.ProcessDataInclude) (*models.ProcessEntry, error) {
	query := url.Values{}
	for _, i := range include {
		query.Add("include", string(i))
	}

	var entry models.ProcessEntry

	err := s.backend.Do(ctx, client.Request{
		Method:    http.MethodGet,
		Path:      listPath + "/" + id.String(),
		Query:     query,
		Operation: "process.get",
	}, &entry)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Disable toggles the disabled flag of a process.
func (s *Service) Disable(ctx context.Context, id uuid.UUID, disabled bool) error {
	return s.backend.Do(ctx, client.Request{
		Method:    http.MethodPost,
		Path:      startPath + "/" + id.String() + "/disable/" + strconv.FormatBool(disabled),
		Operation: "process.disable",
	}, nil)
}

// Kill asks the backend to cancel a process.
func (s *Service) Kill(ctx context.Context, id uuid.UUID) error {
	err := s.backend.Do(ctx, client.Request{
		Method:    http.MethodDelete,
		Path:      startPath + "/" + id.String(),
		Operation: "process.kill",
	}, nil)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Process cancellation requested", "instance_id", id)

	return nil
}

// Cancel kills a process after checking that its current status allows it.
// It returns ErrNotCancellable, without contacting the kill endpoint, otherwise.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*models.ProcessEntry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !entry.Status.CanBeCancelled() {
		return entry, &Error{Op: "Cancel", Err: fmt.Errorf("%w: status is %s", ErrNotCancellable, entry.Status)}
	}

	if err := s.Kill(ctx, id); err != nil {
		return entry, err
	}

	return entry, nil
}

// KillBulk cancels several processes in a single request. An empty list is still sent.
func (s *Service) KillBulk(ctx context.Context, ids []uuid.UUID) error {
	if ids == nil {
		ids = []uuid.UUID{}
	}

	body, contentType, err := client.JSONBody(ids)
	if err != nil {
		return &Error{Op: "KillBulk", Err: err}
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "process.KillBulk",
		attribute.Int(otelhelper.InstanceCountKey, len(ids)),
	)

	err = s.backend.Do(ctx, client.Request{
		Method:      http.MethodDelete,
		Path:        bulkPath,
		Body:        body,
		ContentType: contentType,
		Operation:   "process.kill_bulk",
	}, nil)
	otelhelper.End(span, err)

	return err
}
