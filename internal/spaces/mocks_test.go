package spaces

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/moltspaces/backend/internal/models"
	"github.com/moltspaces/backend/pkg/queue"
)

// MockStore mocks the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GoLive(ctx context.Context, in GoLiveInput) (*models.LiveSpace, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LiveSpace), args.Error(1)
}

func (m *MockStore) EndSpace(ctx context.Context, hostSlug string) (*uuid.UUID, error) {
	args := m.Called(ctx, hostSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uuid.UUID), args.Error(1)
}

func (m *MockStore) GetBySlug(ctx context.Context, hostSlug string) (*models.LiveSpace, error) {
	args := m.Called(ctx, hostSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LiveSpace), args.Error(1)
}

func (m *MockStore) ListLive(ctx context.Context, limit int) ([]models.LiveSpace, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LiveSpace), args.Error(1)
}

func (m *MockStore) GetSession(ctx context.Context, id uuid.UUID) (*models.SpaceSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpaceSession), args.Error(1)
}

func (m *MockStore) LatestSession(ctx context.Context, hostSlug string) (*models.SpaceSession, error) {
	args := m.Called(ctx, hostSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpaceSession), args.Error(1)
}

// MockRoomCreator mocks the RoomCreator interface
type MockRoomCreator struct {
	mock.Mock
}

func (m *MockRoomCreator) CreateRoom(ctx context.Context, hostSlug string) (string, error) {
	args := m.Called(ctx, hostSlug)
	return args.String(0), args.Error(1)
}

// MockFinalizer mocks the Finalizer interface
type MockFinalizer struct {
	mock.Mock
}

func (m *MockFinalizer) EnqueueSessionFinalize(ctx context.Context, payload queue.SessionFinalizePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
