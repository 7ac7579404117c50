package process_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/dukex/concordctl/pkg/client"
	"github.com/dukex/concordctl/pkg/metrics"
	"github.com/dukex/concordctl/pkg/mocks"
	"github.com/dukex/concordctl/pkg/models"
	"github.com/dukex/concordctl/pkg/process"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func makeEntries(n int) []models.ProcessEntry {
	entries := make([]models.ProcessEntry, n)
	for i := range entries {
		entries[i] = models.ProcessEntry{
			InstanceID: uuid.New(),
			Status:     models.ProcessStatusFinished,
			Kind:       models.ProcessKindDefault,
		}
	}

	return entries
}

// newBackendServer answers the list endpoint with rows entries and reports each query it saw.
func newBackendServer(t *testing.T, rows int) (*process.Service, <-chan url.Values) {
	t.Helper()

	seen := make(chan url.Values, 1)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/api/v2/process", request.URL.Path)

		seen <- request.URL.Query()

		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(makeEntries(rows))
	}))
	t.Cleanup(server.Close)

	c, err := client.New(server.URL)
	require.NoError(t, err)

	return process.NewService(c, nil), seen
}

func TestService_List_Pagination(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name      string
		query     models.ProcessListQuery
		rows      int
		wantLimit string
		wantItems int
		wantNext  *int
		wantPrev  *int
	}

	intPtr := func(i int) *int { return &i }

	testCases := []testCase{
		{
			name:      "sentinel row means another page",
			query:     models.ProcessListQuery{},
			rows:      51,
			wantLimit: "51",
			wantItems: 50,
			wantNext:  intPtr(50),
		},
		{
			name:      "exactly limit rows is the last page",
			query:     models.ProcessListQuery{},
			rows:      50,
			wantLimit: "51",
			wantItems: 50,
		},
		{
			name:      "second page points back to the first",
			query:     models.ProcessListQuery{Limit: intPtr(50), Offset: 50},
			rows:      50,
			wantLimit: "51",
			wantItems: 50,
			wantPrev:  intPtr(0),
		},
		{
			name:      "middle page has both directions",
			query:     models.ProcessListQuery{Limit: intPtr(10), Offset: 20},
			rows:      11,
			wantLimit: "11",
			wantItems: 10,
			wantNext:  intPtr(30),
			wantPrev:  intPtr(10),
		},
		{
			name:      "prev is not clamped when offset is below limit",
			query:     models.ProcessListQuery{Limit: intPtr(50), Offset: 20},
			rows:      3,
			wantLimit: "51",
			wantItems: 3,
			wantPrev:  intPtr(-30),
		},
		{
			name:      "negative limit counts as zero",
			query:     models.ProcessListQuery{Limit: intPtr(-5)},
			rows:      1,
			wantLimit: "1",
			wantItems: 0,
		},
		{
			name:      "empty result",
			query:     models.ProcessListQuery{},
			rows:      0,
			wantLimit: "51",
			wantItems: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			service, queries := newBackendServer(t, tc.rows)

			page, err := service.List(t.Context(), tc.query)
			require.NoError(t, err)

			seen := <-queries
			assert.Equal(t, tc.wantLimit, seen.Get("limit"))
			assert.Len(t, page.Items, tc.wantItems)
			assert.NotNil(t, page.Items)
			assert.Equal(t, tc.wantNext, page.Next)
			assert.Equal(t, tc.wantPrev, page.Prev)
		})
	}
}

func TestService_List_DropsSentinelRow(t *testing.T) {
	t.Parallel()

	entries := makeEntries(4)
	backend := &mocks.MockBackend{}

	backend.On("Do", mock.Anything, mock.MatchedBy(func(req client.Request) bool {
		return req.Method == http.MethodGet && req.Query.Get("limit") == "4"
	}), mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(2).(*[]models.ProcessEntry) = entries
	}).Return(nil)

	limit := 3
	page, err := process.NewService(backend, nil).List(t.Context(), models.ProcessListQuery{Limit: &limit})
	require.NoError(t, err)

	require.Len(t, page.Items, 3)
	assert.Equal(t, entries[:3], page.Items)
	assert.NotContains(t, page.Items, entries[3])
	backend.AssertExpectations(t)
}

func TestService_List_ForwardsFilters(t *testing.T) {
	t.Parallel()

	service, queries := newBackendServer(t, 0)

	parent := uuid.New()

	_, err := service.List(t.Context(), models.ProcessListQuery{
		OrgName:          "Default",
		ProjectName:      "billing",
		Status:           models.ProcessStatusRunning,
		Tags:             []string{"nightly", "prod"},
		ParentInstanceID: &parent,
		Include:          []models.ProcessDataInclude{models.IncludeChildrenIDs},
		Meta:             map[string]string{"team": "payments"},
		Offset:           100,
	})
	require.NoError(t, err)

	seen := <-queries
	assert.Equal(t, "Default", seen.Get("orgName"))
	assert.Equal(t, "billing", seen.Get("projectName"))
	assert.Equal(t, "RUNNING", seen.Get("status"))
	assert.Equal(t, []string{"nightly", "prod"}, seen["tags"])
	assert.Equal(t, parent.String(), seen.Get("parentInstanceId"))
	assert.Equal(t, "childrenIds", seen.Get("include"))
	assert.Equal(t, "payments", seen.Get("meta.team"))
	assert.Equal(t, "100", seen.Get("offset"))
	assert.Equal(t, strconv.Itoa(models.DefaultLimit+1), seen.Get("limit"))
}

func TestService_List_CoercedLimit(t *testing.T) {
	t.Parallel()

	limit, err := models.ParseLimit("50")
	require.NoError(t, err)

	service, _ := newBackendServer(t, 51)

	page, err := service.List(t.Context(), models.ProcessListQuery{Limit: &limit})
	require.NoError(t, err)
	assert.Len(t, page.Items, 50)
	require.NotNil(t, page.Next)
	assert.Equal(t, 50, *page.Next)
}

func TestService_List_RejectsOutOfRangeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query models.ProcessListQuery
	}{
		{name: "max int limit", query: models.ProcessListQuery{Offset: 10}.WithLimit(math.MaxInt)},
		{name: "limit above max", query: models.ProcessListQuery{}.WithLimit(models.MaxLimit + 1)},
		{name: "max int offset", query: models.ProcessListQuery{Offset: math.MaxInt}},
		{name: "negative offset", query: models.ProcessListQuery{Offset: -10}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			backend := &mocks.MockBackend{}

			page, err := process.NewService(backend, nil).List(t.Context(), tc.query)
			require.Error(t, err)
			assert.True(t, process.IsValidationError(err))
			assert.Nil(t, page)
			backend.AssertNotCalled(t, "Do", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_List_LargestPageDoesNotOverflow(t *testing.T) {
	t.Parallel()

	service, queries := newBackendServer(t, models.MaxLimit+1)

	page, err := service.List(t.Context(), models.ProcessListQuery{Offset: models.MaxOffset}.WithLimit(models.MaxLimit))
	require.NoError(t, err)

	seen := <-queries
	assert.Equal(t, strconv.Itoa(models.MaxLimit+1), seen.Get("limit"))
	require.NotNil(t, page.Next)
	assert.Equal(t, models.MaxOffset+models.MaxLimit, *page.Next)
	assert.Positive(t, *page.Next)
}

func TestService_List_PropagatesErrors(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("connection reset")
	backend := &mocks.MockBackend{}
	backend.On("Do", mock.Anything, mock.Anything, mock.Anything).Return(backendErr)

	page, err := process.NewService(backend, nil).List(t.Context(), models.ProcessListQuery{})
	require.ErrorIs(t, err, backendErr)
	assert.Nil(t, page)
}

func TestService_List_PropagatesStatusErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	c, err := client.New(server.URL)
	require.NoError(t, err)

	_, err = process.NewService(c, nil).List(context.Background(), models.ProcessListQuery{})
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
}

func TestService_List_ObservesPageSize(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.NewBackend("test", reg)

	backend := &mocks.MockBackend{}
	backend.On("Do", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(2).(*[]models.ProcessEntry) = makeEntries(2)
	}).Return(nil)

	_, err := process.NewService(backend, m).List(t.Context(), models.ProcessListQuery{})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "test_process_list_page_items")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
