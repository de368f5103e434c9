package participants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/internal/models"
	"github.com/moltspaces/backend/internal/realtime"
)

var (
	// ErrSpaceNotLive means the host has no current session to join.
	ErrSpaceNotLive = errors.New("space is not live")
	// ErrJoinFailed is the generic user-facing join error.
	ErrJoinFailed = errors.New("failed to join space")
)

const readTimeout = 10 * time.Second

// Store is the roster persistence used by the service.
type Store interface {
	Insert(ctx context.Context, p *models.Participant) error
	MarkLeft(ctx context.Context, id uuid.UUID) (*models.Participant, bool, error)
	Heartbeat(ctx context.Context, id uuid.UUID) error
	ListActiveBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error)
	SyncCounts(ctx context.Context, sessionID uuid.UUID, hostSlug string) (int, error)
	SweepStale(ctx context.Context, ttl time.Duration) ([]models.Participant, error)
}

// Ledger exposes the point read the roster needs from the session ledger.
type Ledger interface {
	GetHostSpace(ctx context.Context, hostSlug string) (*models.LiveSpace, error)
}

// TokenMinter mints transport meeting tokens for a joining user.
type TokenMinter interface {
	CreateMeetingToken(ctx context.Context, roomURL, userName string, owner bool) (string, error)
}

// JoinInput identifies who joins which host's current session, and how.
type JoinInput struct {
	HostSlug          string
	UserFid           string
	FarcasterUsername string
	DisplayName       string
	PfpURL            string
	Role              string
}

// JoinResult is everything a client needs to enter the room: the roster
// record it must retain for leave/heartbeat calls, plus the transport handle.
type JoinResult struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	SessionID     uuid.UUID `json:"session_id"`
	RoomURL       string    `json:"room_url"`
	Token         string    `json:"token"`
}

// Service is the participant roster: who is present in a session, kept
// consistent with the ledger's cached counts, fanned out in real time.
type Service struct {
	store  Store
	ledger Ledger
	tokens TokenMinter
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewService creates the roster service. tokens may be nil in tests.
func NewService(store Store, ledger Ledger, tokens TokenMinter, hub *realtime.Hub, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, ledger: ledger, tokens: tokens, hub: hub, logger: logger}
}

// Join adds the user to the host's current session and mints a transport
// token. The roster write is the source of truth for presence; transport
// peer metadata is never trusted for it.
func (s *Service) Join(ctx context.Context, in JoinInput) (*JoinResult, error) {
	space, err := s.ledger.GetHostSpace(ctx, in.HostSlug)
	if err != nil {
		s.logger.Error("ledger read failed on join", zap.String("host_slug", in.HostSlug), zap.Error(err))
		return nil, ErrJoinFailed
	}
	if !space.IsLive() || space.CurrentSessionID == nil || space.DailyRoomURL == nil {
		return nil, ErrSpaceNotLive
	}

	role := in.Role
	if !models.ValidRole(role) {
		role = models.RoleListener
	}

	p := &models.Participant{
		SessionID:         *space.CurrentSessionID,
		HostSlug:          in.HostSlug,
		UserFid:           in.UserFid,
		FarcasterUsername: in.FarcasterUsername,
		DisplayName:       in.DisplayName,
		PfpURL:            in.PfpURL,
		Role:              role,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		s.logger.Error("participant insert failed", zap.String("host_slug", in.HostSlug), zap.Error(err))
		return nil, ErrJoinFailed
	}

	var token string
	if s.tokens != nil {
		token, err = s.tokens.CreateMeetingToken(ctx, *space.DailyRoomURL, in.FarcasterUsername, role == models.RoleHost)
		if err != nil {
			s.logger.Error("meeting token mint failed", zap.String("host_slug", in.HostSlug), zap.Error(err))
			return nil, ErrJoinFailed
		}
	}

	s.syncAndNotify(ctx, p.SessionID, p.HostSlug, realtime.EventParticipantJoined, p)
	return &JoinResult{
		ParticipantID: p.ID,
		SessionID:     p.SessionID,
		RoomURL:       *space.DailyRoomURL,
		Token:         token,
	}, nil
}

// Leave marks the record as left. Best-effort: this runs on teardown paths
// where surfacing an error is not actionable, so failures are only logged.
// A second call for the same record is a no-op.
func (s *Service) Leave(ctx context.Context, id uuid.UUID) {
	p, changed, err := s.store.MarkLeft(ctx, id)
	if err != nil {
		s.logger.Warn("participant leave failed", zap.String("participant_id", id.String()), zap.Error(err))
		return
	}
	if !changed {
		return
	}
	s.syncAndNotify(ctx, p.SessionID, p.HostSlug, realtime.EventParticipantLeft, p)
}

// Heartbeat refreshes the record's liveness timestamp.
func (s *Service) Heartbeat(ctx context.Context, id uuid.UUID) error {
	return s.store.Heartbeat(ctx, id)
}

// HistoricalParticipants returns every record of a session regardless of
// status, the fallback display for a just-ended space.
func (s *Service) HistoricalParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.Participant, error) {
	list, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Participant{}
	}
	return list, nil
}

// SubscribeSessionParticipants delivers the session's active roster now and
// on every roster change, ordered by join time. A nil session ID delivers an
// empty list synchronously with a no-op disposer, simplifying conditional use
// upstream. Errors degrade to an empty list and a log line.
func (s *Service) SubscribeSessionParticipants(sessionID *uuid.UUID, onChange func([]models.Participant)) (cancel func()) {
	if sessionID == nil {
		onChange([]models.Participant{})
		return func() {}
	}
	id := *sessionID

	deliver := func() {
		ctx, cancelRead := context.WithTimeout(context.Background(), readTimeout)
		defer cancelRead()
		list, err := s.store.ListActiveBySession(ctx, id)
		if err != nil {
			s.logger.Warn("roster subscription read failed",
				zap.String("session_id", id.String()), zap.Error(err))
			onChange([]models.Participant{})
			return
		}
		if list == nil {
			list = []models.Participant{}
		}
		onChange(list)
	}

	cancel = s.hub.Subscribe(realtime.SessionTopic(id), func(string, []byte) { deliver() })
	deliver()
	return cancel
}

// ExpireStale sweeps active records whose heartbeat is older than ttl and
// fans out roster/ledger updates for every affected session. Returns the
// number of records swept.
func (s *Service) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	swept, err := s.store.SweepStale(ctx, ttl)
	if err != nil {
		return 0, err
	}
	type key struct {
		sessionID uuid.UUID
		hostSlug  string
	}
	seen := make(map[key]struct{})
	for i := range swept {
		p := &swept[i]
		k := key{p.SessionID, p.HostSlug}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		s.syncAndNotify(ctx, p.SessionID, p.HostSlug, realtime.EventParticipantLeft, p)
	}
	return len(swept), nil
}

// syncAndNotify recomputes cached counts and publishes the roster change to
// the session, the host's space, and the directory.
func (s *Service) syncAndNotify(ctx context.Context, sessionID uuid.UUID, hostSlug string, event string, p *models.Participant) {
	if _, err := s.store.SyncCounts(ctx, sessionID, hostSlug); err != nil {
		s.logger.Warn("participant count sync failed",
			zap.String("session_id", sessionID.String()), zap.Error(err))
	}
	s.hub.Publish(realtime.SessionTopic(sessionID), event, p)
	s.hub.Publish(realtime.SpaceTopic(hostSlug), realtime.EventSpaceUpdated, nil)
	s.hub.Publish(realtime.TopicDirectory, realtime.EventDirectoryChanged, nil)
}
