package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/internal/farcaster"
	"github.com/moltspaces/backend/internal/models"
	"github.com/moltspaces/backend/pkg/response"
)

// Verifier resolves a SIWN signer to a Farcaster profile.
type Verifier interface {
	VerifySigner(ctx context.Context, signerUUID string) (fid string, err error)
	GetUser(ctx context.Context, fid string) (*farcaster.Profile, error)
}

// Handler handles sign-in.
type Handler struct {
	repo     *Repository
	verifier Verifier
	jwt      *JWTService
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, verifier Verifier, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, verifier: verifier, jwt: jwt, logger: logger}
}

type signInRequest struct {
	SignerUUID string `json:"signer_uuid" binding:"required"`
}

// SignIn handles POST /auth/farcaster. Verifies the approved signer with
// Neynar, refreshes the user row, and issues a JWT.
func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "signer_uuid required")
		return
	}

	ctx := c.Request.Context()
	fid, err := h.verifier.VerifySigner(ctx, req.SignerUUID)
	if err != nil {
		if errors.Is(err, farcaster.ErrSignerNotApproved) {
			response.Unauthorized(c, "signer not approved")
			return
		}
		h.logger.Error("signer verification failed", zap.Error(err))
		response.Internal(c, "sign-in failed")
		return
	}

	profile, err := h.verifier.GetUser(ctx, fid)
	if err != nil {
		h.logger.Error("profile lookup failed", zap.String("fid", fid), zap.Error(err))
		response.Internal(c, "sign-in failed")
		return
	}

	user := &models.User{
		Fid:         profile.Fid,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		PfpURL:      profile.PfpURL,
	}
	if err := h.repo.Upsert(ctx, user); err != nil {
		h.logger.Error("user upsert failed", zap.String("fid", fid), zap.Error(err))
		response.Internal(c, "sign-in failed")
		return
	}

	token, err := h.jwt.Generate(user.Fid, user.Username)
	if err != nil {
		h.logger.Error("jwt generation failed", zap.String("fid", fid), zap.Error(err))
		response.Internal(c, "sign-in failed")
		return
	}

	response.OK(c, gin.H{"token": token, "user": user})
}
