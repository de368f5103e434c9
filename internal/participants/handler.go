package participants

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/internal/middleware"
	"github.com/moltspaces/backend/internal/models"
	"github.com/moltspaces/backend/pkg/response"
)

// UserLookup resolves the caller's stored profile for roster records.
type UserLookup interface {
	GetByFid(ctx context.Context, fid string) (*models.User, error)
}

// Handler handles roster endpoints.
type Handler struct {
	svc    *Service
	users  UserLookup
	logger *zap.Logger
}

// NewHandler creates a participants handler.
func NewHandler(svc *Service, users UserLookup, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, users: users, logger: logger}
}

type joinRequest struct {
	Role string `json:"role"`
}

// Join handles POST /spaces/:host/join. Creates the roster record and
// returns it together with the transport room URL and meeting token.
func (h *Handler) Join(c *gin.Context) {
	hostSlug := c.Param("host")
	fid, _ := c.MustGet(middleware.ContextUserFid).(string)
	username, _ := c.MustGet(middleware.ContextUsername).(string)

	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "invalid request body")
		return
	}

	role := req.Role
	if username == hostSlug {
		role = models.RoleHost
	}

	in := JoinInput{
		HostSlug:          hostSlug,
		UserFid:           fid,
		FarcasterUsername: username,
		DisplayName:       username,
		Role:              role,
	}
	if user, err := h.users.GetByFid(c.Request.Context(), fid); err == nil && user != nil {
		in.DisplayName = user.DisplayName
		in.PfpURL = user.PfpURL
	}

	result, err := h.svc.Join(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, ErrSpaceNotLive) {
			response.Conflict(c, ErrSpaceNotLive.Error())
			return
		}
		response.Internal(c, ErrJoinFailed.Error())
		return
	}
	response.Created(c, result)
}

// Leave handles POST /participants/:id/leave. Always 200: leave is a
// best-effort teardown write whose failure is not actionable for the client.
func (h *Handler) Leave(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.svc.Leave(c.Request.Context(), id)
	response.OK(c, gin.H{"status": models.StatusLeft})
}

// Heartbeat handles POST /participants/:id/heartbeat.
func (h *Handler) Heartbeat(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Heartbeat(c.Request.Context(), id); err != nil {
		h.logger.Warn("heartbeat failed", zap.String("participant_id", id.String()), zap.Error(err))
		response.Internal(c, "heartbeat failed")
		return
	}
	response.OK(c, gin.H{"status": models.StatusActive})
}

// History handles GET /sessions/:sessionId/participants - the full roster of
// a session regardless of status, for just-ended-space display.
func (h *Handler) History(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.svc.HistoricalParticipants(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("historical roster read failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		response.Internal(c, "failed to list participants")
		return
	}
	response.OK(c, list)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid participant id")
		return uuid.Nil, false
	}
	return id, true
}
