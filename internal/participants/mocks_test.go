package participants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/moltspaces/backend/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, p *models.Participant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStore) MarkLeft(ctx context.Context, id uuid.UUID) (*models.Participant, bool, error) {
	args := m.Called(ctx, id)
	var p *models.Participant
	if args.Get(0) != nil {
		p = args.Get(0).(*models.Participant)
	}
	return p, args.Bool(1), args.Error(2)
}

func (m *MockStore) Heartbeat(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) ListActiveBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	args := m.Called(ctx, sessionID)
	var list []models.Participant
	if args.Get(0) != nil {
		list = args.Get(0).([]models.Participant)
	}
	return list, args.Error(1)
}

func (m *MockStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	args := m.Called(ctx, sessionID)
	var list []models.Participant
	if args.Get(0) != nil {
		list = args.Get(0).([]models.Participant)
	}
	return list, args.Error(1)
}

func (m *MockStore) SyncCounts(ctx context.Context, sessionID uuid.UUID, hostSlug string) (int, error) {
	args := m.Called(ctx, sessionID, hostSlug)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) SweepStale(ctx context.Context, ttl time.Duration) ([]models.Participant, error) {
	args := m.Called(ctx, ttl)
	var list []models.Participant
	if args.Get(0) != nil {
		list = args.Get(0).([]models.Participant)
	}
	return list, args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetHostSpace(ctx context.Context, hostSlug string) (*models.LiveSpace, error) {
	args := m.Called(ctx, hostSlug)
	var space *models.LiveSpace
	if args.Get(0) != nil {
		space = args.Get(0).(*models.LiveSpace)
	}
	return space, args.Error(1)
}

type MockTokenMinter struct {
	mock.Mock
}

func (m *MockTokenMinter) CreateMeetingToken(ctx context.Context, roomURL, userName string, owner bool) (string, error) {
	args := m.Called(ctx, roomURL, userName, owner)
	return args.String(0), args.Error(1)
}
