package mocks

import (
	"context"

	"github.com/dukex/concordctl/pkg/client"
	"github.com/dukex/concordctl/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of process.Backend interface.
// Use Run to fill the out argument.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Do(ctx context.Context, req client.Request, out any) error {
	args := m.Called(ctx, req, out)

	return args.Error(0)
}

// MockProcessGetter is a mock implementation of watch.Getter interface.
type MockProcessGetter struct {
	mock.Mock
}

func (m *MockProcessGetter) Get(ctx context.Context, id uuid.UUID, include ...models.ProcessDataInclude) (*models.ProcessEntry, error) {
	args := m.Called(ctx, id, include)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ProcessEntry), args.Error(1)
}
