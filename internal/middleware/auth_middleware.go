package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
)

// Gin context keys set by the auth middleware.
const (
	ContextUserID      = "userID"
	ContextUserEmail   = "userEmail"
	ContextDisplayName = "userDisplayName"
)

// ErrorResponse mirrors api.ErrorResponse to avoid an import cycle.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// TokenVerifier checks a Firebase ID token.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*core.IdentityUser, error)
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware panics on a nil verifier; routes cannot be secured without one.
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	if verifier == nil {
		panic("AuthMiddleware requires a token verifier")
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// VerifyToken reads "Authorization: Bearer <token>" and stores the caller in the context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}

		user, err := m.verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			m.logger.Info("Rejected ID token", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		c.Set(ContextUserID, user.UID)
		if user.Email != "" {
			c.Set(ContextUserEmail, user.Email)
		}
		if user.DisplayName != "" {
			c.Set(ContextDisplayName, user.DisplayName)
		}
		c.Next()
	}
}

// UserID returns the authenticated uid, or "" outside authenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
