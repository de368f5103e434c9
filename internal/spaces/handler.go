package spaces

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/internal/middleware"
	"github.com/moltspaces/backend/internal/models"
	"github.com/moltspaces/backend/pkg/response"
)

// TokenMinter mints transport meeting tokens (see internal/daily).
type TokenMinter interface {
	CreateMeetingToken(ctx context.Context, roomURL, userName string, owner bool) (string, error)
}

// Handler handles space ledger endpoints.
type Handler struct {
	svc    *Service
	tokens TokenMinter
	logger *zap.Logger
}

// NewHandler creates a spaces handler.
func NewHandler(svc *Service, tokens TokenMinter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// RequireHostOwner allows only the host named in the :host route param.
// Ownership here is "your username is the host slug" - the spec's
// caller-enforced precondition made explicit at the HTTP boundary.
func RequireHostOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, _ := c.MustGet(middleware.ContextUsername).(string)
		if username == "" || username != c.Param("host") {
			response.Forbidden(c, "not the host of this space")
			c.Abort()
			return
		}
		c.Next()
	}
}

type goLiveRequest struct {
	Title *string `json:"title"`
}

// GoLive handles POST /spaces/:host/go-live.
func (h *Handler) GoLive(c *gin.Context) {
	hostSlug := c.Param("host")
	fid, _ := c.MustGet(middleware.ContextUserFid).(string)

	var req goLiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "invalid request body")
		return
	}

	space, err := h.svc.GoLive(c.Request.Context(), hostSlug, fid, req.Title)
	if err != nil {
		response.Internal(c, ErrGoLiveFailed.Error())
		return
	}
	response.Created(c, space)
}

// End handles POST /spaces/:host/end.
func (h *Handler) End(c *gin.Context) {
	if err := h.svc.EndSpace(c.Request.Context(), c.Param("host")); err != nil {
		response.Internal(c, ErrEndSpaceFailed.Error())
		return
	}
	response.OK(c, gin.H{"state": models.StateOffline})
}

// Get handles GET /spaces/:host.
func (h *Handler) Get(c *gin.Context) {
	space, err := h.svc.GetHostSpace(c.Request.Context(), c.Param("host"))
	if err != nil {
		h.logger.Error("host space read failed", zap.String("host_slug", c.Param("host")), zap.Error(err))
		response.Internal(c, "failed to get space")
		return
	}
	if space == nil {
		response.NotFound(c, "space not found")
		return
	}
	response.OK(c, space)
}

// ListLive handles GET /live-spaces (the landing-page directory).
func (h *Handler) ListLive(c *gin.Context) {
	list, err := h.svc.ListLive(c.Request.Context())
	if err != nil {
		h.logger.Error("live directory read failed", zap.Error(err))
		response.Internal(c, "failed to list live spaces")
		return
	}
	response.OK(c, list)
}

// LatestSession handles GET /spaces/:host/sessions/latest - the fallback
// source when viewing a space that just ended.
func (h *Handler) LatestSession(c *gin.Context) {
	session, err := h.svc.LatestSession(c.Request.Context(), c.Param("host"))
	if err != nil {
		h.logger.Error("latest session read failed", zap.String("host_slug", c.Param("host")), zap.Error(err))
		response.Internal(c, "failed to get session")
		return
	}
	if session == nil {
		response.NotFound(c, "no sessions for this space")
		return
	}
	response.OK(c, session)
}

// Token handles GET /spaces/:host/token. Mints a transport meeting token for
// the caller; the host gets an owner token, everyone else a listener token.
func (h *Handler) Token(c *gin.Context) {
	if h.tokens == nil {
		response.ServiceUnavailable(c, "transport provider not configured (DAILY_API_KEY)")
		return
	}
	hostSlug := c.Param("host")
	username, _ := c.MustGet(middleware.ContextUsername).(string)

	space, err := h.svc.GetHostSpace(c.Request.Context(), hostSlug)
	if err != nil {
		h.logger.Error("host space read failed", zap.String("host_slug", hostSlug), zap.Error(err))
		response.Internal(c, "failed to mint token")
		return
	}
	if !space.IsLive() || space.DailyRoomURL == nil {
		response.Conflict(c, "space is not live")
		return
	}

	owner := username == hostSlug
	token, err := h.tokens.CreateMeetingToken(c.Request.Context(), *space.DailyRoomURL, username, owner)
	if err != nil {
		h.logger.Error("meeting token mint failed", zap.String("host_slug", hostSlug), zap.Error(err))
		response.Internal(c, "failed to mint token")
		return
	}
	response.OK(c, gin.H{"token": token, "room_url": *space.DailyRoomURL})
}
