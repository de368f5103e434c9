package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moltspaces/backend/internal/auth"
	"github.com/moltspaces/backend/pkg/response"
)

const (
	// ContextUserFid is the key for the Farcaster fid in gin context.
	ContextUserFid = "user_fid"
	// ContextUsername is the key for the Farcaster username in gin context.
	ContextUsername = "username"
)

// JWT returns a middleware that validates JWT and sets user claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserFid, claims.Fid)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}
