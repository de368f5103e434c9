package spaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/internal/models"
	"github.com/moltspaces/backend/internal/realtime"
	"github.com/moltspaces/backend/pkg/queue"
)

// Generic user-facing errors; the underlying cause is logged, not surfaced.
var (
	ErrGoLiveFailed   = errors.New("failed to go live")
	ErrEndSpaceFailed = errors.New("failed to end space")
)

// subscription reads run against a background context with a short deadline
// since they execute outside any request flow.
const readTimeout = 10 * time.Second

// directoryLimit caps the landing-page listing, largest spaces first.
const directoryLimit = 20

// Store is the ledger persistence used by the service.
type Store interface {
	GoLive(ctx context.Context, in GoLiveInput) (*models.LiveSpace, error)
	EndSpace(ctx context.Context, hostSlug string) (*uuid.UUID, error)
	GetBySlug(ctx context.Context, hostSlug string) (*models.LiveSpace, error)
	ListLive(ctx context.Context, limit int) ([]models.LiveSpace, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SpaceSession, error)
	LatestSession(ctx context.Context, hostSlug string) (*models.SpaceSession, error)
}

// RoomCreator provisions an audio room with the external transport provider.
type RoomCreator interface {
	CreateRoom(ctx context.Context, hostSlug string) (roomURL string, err error)
}

// Finalizer schedules post-end bookkeeping for an ended session.
// Satisfied by *queue.Queue.
type Finalizer interface {
	EnqueueSessionFinalize(ctx context.Context, payload queue.SessionFinalizePayload) error
}

// Service is the session ledger: single source of truth for "is this host
// live, and where", with push-based subscriptions on top.
type Service struct {
	store     Store
	rooms     RoomCreator
	hub       *realtime.Hub
	finalizer Finalizer
	logger    *zap.Logger
}

// NewService creates the ledger service. rooms and finalizer may be nil in tests.
func NewService(store Store, rooms RoomCreator, hub *realtime.Hub, finalizer Finalizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, rooms: rooms, hub: hub, finalizer: finalizer, logger: logger}
}

// GoLive provisions a transport room and flips the host's ledger to Live.
// The caller is assumed to already be authenticated as the host.
func (s *Service) GoLive(ctx context.Context, hostSlug, hostFid string, title *string) (*models.LiveSpace, error) {
	roomURL, err := s.rooms.CreateRoom(ctx, hostSlug)
	if err != nil {
		s.logger.Error("room provisioning failed", zap.String("host_slug", hostSlug), zap.Error(err))
		return nil, ErrGoLiveFailed
	}

	space, err := s.store.GoLive(ctx, GoLiveInput{
		HostSlug:     hostSlug,
		HostFid:      hostFid,
		DailyRoomURL: roomURL,
		Title:        title,
	})
	if err != nil {
		s.logger.Error("go live write failed", zap.String("host_slug", hostSlug), zap.Error(err))
		return nil, ErrGoLiveFailed
	}

	s.hub.Publish(realtime.SpaceTopic(hostSlug), realtime.EventSpaceLive, space)
	s.hub.Publish(realtime.TopicDirectory, realtime.EventDirectoryChanged, nil)
	s.logger.Info("space live",
		zap.String("host_slug", hostSlug),
		zap.String("session_id", space.CurrentSessionID.String()))
	return space, nil
}

// EndSpace closes the current session and flips the ledger to Offline.
// A host with no ledger row is a silent no-op.
func (s *Service) EndSpace(ctx context.Context, hostSlug string) error {
	endedSessionID, err := s.store.EndSpace(ctx, hostSlug)
	if err != nil {
		s.logger.Error("end space write failed", zap.String("host_slug", hostSlug), zap.Error(err))
		return ErrEndSpaceFailed
	}
	if endedSessionID == nil {
		return nil
	}

	if s.finalizer != nil {
		payload := queue.SessionFinalizePayload{SessionID: *endedSessionID, HostSlug: hostSlug}
		if err := s.finalizer.EnqueueSessionFinalize(ctx, payload); err != nil {
			s.logger.Warn("session finalize enqueue failed",
				zap.String("session_id", endedSessionID.String()), zap.Error(err))
		}
	}

	s.hub.Publish(realtime.SpaceTopic(hostSlug), realtime.EventSpaceOffline, nil)
	s.hub.Publish(realtime.TopicDirectory, realtime.EventDirectoryChanged, nil)
	s.logger.Info("space ended",
		zap.String("host_slug", hostSlug),
		zap.String("session_id", endedSessionID.String()))
	return nil
}

// GetHostSpace returns the ledger row for a host, or nil when absent.
func (s *Service) GetHostSpace(ctx context.Context, hostSlug string) (*models.LiveSpace, error) {
	return s.store.GetBySlug(ctx, hostSlug)
}

// GetSession returns one session by ID, or nil when absent.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*models.SpaceSession, error) {
	return s.store.GetSession(ctx, id)
}

// LatestSession returns the host's most recent session, or nil when none exist.
func (s *Service) LatestSession(ctx context.Context, hostSlug string) (*models.SpaceSession, error) {
	return s.store.LatestSession(ctx, hostSlug)
}

// ListLive is the one-shot live directory: every space with state = Live.
func (s *Service) ListLive(ctx context.Context) ([]models.LiveSpace, error) {
	list, err := s.store.ListLive(ctx, directoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list live spaces: %w", err)
	}
	if list == nil {
		list = []models.LiveSpace{}
	}
	return list, nil
}

// SubscribeHostSpace delivers the host's ledger snapshot now and on every
// subsequent mutation. onChange receives nil whenever the space is missing,
// offline, or the read fails: downstream treats "no live space" uniformly.
func (s *Service) SubscribeHostSpace(hostSlug string, onChange func(*models.LiveSpace)) (cancel func()) {
	deliver := func() {
		ctx, cancelRead := context.WithTimeout(context.Background(), readTimeout)
		defer cancelRead()
		space, err := s.store.GetBySlug(ctx, hostSlug)
		if err != nil {
			s.logger.Warn("host space subscription read failed",
				zap.String("host_slug", hostSlug), zap.Error(err))
			onChange(nil)
			return
		}
		if !space.IsLive() {
			onChange(nil)
			return
		}
		onChange(space)
	}

	cancel = s.hub.Subscribe(realtime.SpaceTopic(hostSlug), func(string, []byte) { deliver() })
	deliver()
	return cancel
}

// SubscribeLiveDirectory delivers the set of live spaces now and on every
// directory change. Errors degrade to an empty list, never to a callback error.
func (s *Service) SubscribeLiveDirectory(onChange func([]models.LiveSpace)) (cancel func()) {
	deliver := func() {
		ctx, cancelRead := context.WithTimeout(context.Background(), readTimeout)
		defer cancelRead()
		list, err := s.store.ListLive(ctx, directoryLimit)
		if err != nil {
			s.logger.Warn("live directory subscription read failed", zap.Error(err))
			onChange([]models.LiveSpace{})
			return
		}
		if list == nil {
			list = []models.LiveSpace{}
		}
		onChange(list)
	}

	cancel = s.hub.Subscribe(realtime.TopicDirectory, func(string, []byte) { deliver() })
	deliver()
	return cancel
}
