package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
)

// SessionHeader carries the marketplace session id issued at login.
const SessionHeader = "X-Session-ID"

// ContextSessionID is the gin key holding the validated session id.
const ContextSessionID = "sessionID"

// RequireSession rejects requests whose session was terminated by a login elsewhere.
// It must run after VerifyToken.
func RequireSession(sessions core.SessionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Session header is required", Code: "session_required"})
			return
		}
		err := sessions.ValidateSession(c.Request.Context(), UserID(c), sessionID)
		switch {
		case err == nil:
			c.Set(ContextSessionID, sessionID)
			c.Next()
		case errors.Is(err, core.ErrSessionTerminated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Your session ended because you signed in on another device", Code: "session_terminated"})
		case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrNotSessionOwner):
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Unknown session", Code: "session_invalid"})
		default:
			logger.Error("Session validation failed", zap.String("sessionID", sessionID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
		}
	}
}

// SessionID returns the validated session id.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
