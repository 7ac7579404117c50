package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/concordctl/pkg/client"
	"github.com/dukex/concordctl/pkg/metrics"
	"github.com/dukex/concordctl/pkg/models"
	"github.com/dukex/concordctl/pkg/process"
	"github.com/dukex/concordctl/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")

		switch request.URL.Path {
		case "/api/v2/process":
			_ = json.NewEncoder(writer).Encode([]models.ProcessEntry{
				{InstanceID: uuid.New(), Status: models.ProcessStatusFailed},
			})
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(backend.Close)

	registry := prometheus.NewRegistry()
	backendMetrics := metrics.NewBackend("concordctl", registry)

	c, err := client.New(backend.URL, client.WithMetrics(backendMetrics))
	require.NoError(t, err)

	return NewAPI(slog.Default(), process.NewService(c, backendMetrics), registry).App()
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return body
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "concordctl gateway", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)

	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_ListProcessesAndMetrics(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/processes?limit=10", nil))
	require.NoError(t, err)

	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var page web.ProcessPageResponse
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.StatusColorRed, page.Items[0].Color)
	assert.True(t, page.Items[0].Final)
	assert.Nil(t, page.Next)
	assert.Nil(t, page.Prev)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)

	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `concordctl_backend_requests_total{code="200",operation="process.list"} 1`)
	assert.Contains(t, string(body), "concordctl_process_list_page_items")
}

func TestAPI_GetProcess_NotFound(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/processes/"+uuid.NewString(), nil))
	require.NoError(t, err)

	body := readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "process_not_found")
}
