package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/middleware"
	"rentshare-backend-go/internal/models"
)

// SessionHandler opens and ends marketplace sessions.
type SessionHandler struct {
	sessions core.SessionService
	logger   *zap.Logger
}

func NewSessionHandler(sessions core.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) mapSessionErrorToStatus(c *gin.Context, op string, err error) {
	var conflict *core.SessionConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, SessionConflictResponse{
			Error:          "Another device is signed in",
			Code:           "session_conflict",
			ActiveSessions: conflict.Active,
		})
	case errors.Is(err, core.ErrLoginAborted):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrLoginAborted.Error(), Code: "login_aborted"})
	case errors.Is(err, core.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrSessionNotFound.Error()})
	case errors.Is(err, core.ErrNotSessionOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrNotSessionOwner.Error()})
	case errors.Is(err, core.ErrSessionTerminated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: core.ErrSessionTerminated.Error(), Code: "session_terminated"})
	case errors.Is(err, core.ErrLoginFailed):
		// The Firebase credential stays valid; the client may retry the login.
		h.logger.Error("Session bookkeeping failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Login Failed", Code: "login_failed"})
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// Login handles POST /api/v1/sessions/login.
// Without a resolution an active session elsewhere yields 409 and the list to choose from.
func (h *SessionHandler) Login(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.DeviceInfo.IPAddress = c.ClientIP()
	if req.DeviceInfo.UserAgent == "" {
		req.DeviceInfo.UserAgent = c.Request.UserAgent()
	}
	result, err := h.sessions.Login(c.Request.Context(), uid, req.DeviceInfo, req.Resolution)
	if err != nil {
		h.mapSessionErrorToStatus(c, "login", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ActiveSessions handles GET /api/v1/sessions/active.
func (h *SessionHandler) ActiveSessions(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	active, err := h.sessions.CheckActiveSession(c.Request.Context(), uid)
	if err != nil {
		h.mapSessionErrorToStatus(c, "active_sessions", err)
		return
	}
	c.JSON(http.StatusOK, active)
}

// Logout handles DELETE /api/v1/sessions/current.
func (h *SessionHandler) Logout(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID := c.GetHeader(middleware.SessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Session header is required"})
		return
	}
	result, err := h.sessions.TerminateCurrentSession(c.Request.Context(), uid, sessionID)
	if err != nil {
		h.mapSessionErrorToStatus(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ForceTerminate handles DELETE /api/v1/sessions/:sessionId. Soft failures come back as 200 with success=false.
func (h *SessionHandler) ForceTerminate(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.sessions.ForceTerminateSession(c.Request.Context(), uid, c.Param("sessionId"))
	if err != nil {
		h.mapSessionErrorToStatus(c, "force_terminate", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
