// Package client provides the HTTP transport used to talk to the orchestration backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/dukex/concordctl/pkg/log"
	"github.com/dukex/concordctl/pkg/metrics"
	"github.com/dukex/concordctl/pkg/otelhelper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "concordctl"
)

// Request describes one backend call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   io.Reader

	// ContentType is sent only when Body is set.
	ContentType string

	// Operation is a low-cardinality name used for spans and metrics.
	// Defaults to "Method Path".
	Operation string
}

// Client sends requests to the backend. It holds no per-call state and is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	apiKey     string
	userAgent  string
	tracer     trace.Tracer
	metrics    *metrics.Backend
	logger     *slog.Logger

	// timeout is applied once every option has run.
	timeout *time.Duration
}

type Option func(*Client)

// WithAPIKey sends key in the Authorization header of every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHTTPClient replaces the default instrumented http.Client. The client is
// not modified; WithTimeout applies to a copy of it.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each round trip. Zero disables the client-side timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = &timeout
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

func WithMetrics(m *metrics.Backend) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the backend served at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q must be an absolute http(s) URL", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultTimeout,
		},
		userAgent: defaultUserAgent,
		tracer:    otelhelper.Tracer(),
		logger:    log.WithModule("client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout != nil {
		httpClient := *c.httpClient
		httpClient.Timeout = *c.timeout
		c.httpClient = &httpClient
	}

	return c, nil
}

// BaseURL returns the backend address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends req and decodes a JSON response into out. out may be nil to discard the body.
// An empty 2xx body leaves out untouched.
//
// Transport failures are returned wrapped, non-2xx statuses as *RequestError
// and undecodable payloads as *DecodeError. Nothing is retried.
func (c *Client) Do(ctx context.Context, req Request, out any) (err error) {
	operation := req.Operation
	if operation == "" {
		operation = req.Method + " " + req.Path
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "backend "+operation,
		attribute.String(otelhelper.BackendPathKey, req.Path),
	)

	start := time.Now()
	statusCode := 0

	defer func() {
		elapsed := time.Since(start)
		c.metrics.ObserveRequest(operation, statusCode, elapsed)
		otelhelper.End(span, err, attribute.Int(otelhelper.BackendCodeKey, statusCode))

		c.logger.DebugContext(ctx, "Backend request completed",
			"method", req.Method,
			"path", req.Path,
			"status", statusCode,
			"duration", elapsed,
			"error", err,
		)
	}()

	target := c.baseURL.JoinPath(req.Path)
	target.RawQuery = req.Query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), req.Body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if req.Body != nil && req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: request failed: %w", req.Method, req.Path, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	statusCode = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response body: %w", req.Method, req.Path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newRequestError(req.Method, req.Path, resp, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Method: req.Method, URL: req.Path, Err: err}
	}

	return nil
}

// JSONBody encodes v for use as a request body.
func JSONBody(v any) (io.Reader, string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	return bytes.NewReader(payload), "application/json", nil
}

// FormField is a single multipart form value. Order is preserved.
type FormField struct {
	Name  string
	Value string
}

// MultipartBody encodes fields as multipart/form-data.
func MultipartBody(fields []FormField) (io.Reader, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	for _, field := range fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", field.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
