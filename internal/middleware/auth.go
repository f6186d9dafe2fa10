package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/apperr"
)

const userIDKey = "user_id"

// Authenticator turns an access token into the id of an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint64, error)
}

// Auth requires a bearer token and stores the authenticated user id on the
// context.
func Auth(authn Authenticator, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Sugar()
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if !strings.HasPrefix(header, "Bearer ") || token == "" {
			apperr.Respond(c, log, apperr.Unauthorized("missing bearer token"))
			return
		}

		userID, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				apperr.Respond(c, log, err)
				return
			}
			apperr.Respond(c, log, apperr.Unauthorized("invalid or expired token"))
			return
		}

		SetUserID(c, userID)
		c.Next()
	}
}

// SetUserID stores an authenticated user id on the context.
func SetUserID(c *gin.Context, userID uint64) {
	c.Set(userIDKey, userID)
}

// UserID returns the authenticated user id, or 0 outside Auth.
func UserID(c *gin.Context) uint64 {
	return c.GetUint64(userIDKey)
}
