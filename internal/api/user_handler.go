package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/models"
)

// UserHandler handles user-profile related API endpoints.
type UserHandler struct {
	users  core.UserService
	logger *zap.Logger
}

func NewUserHandler(users core.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) mapUserErrorToStatus(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found", Action: "initialize_profile"})
	case errors.Is(err, core.ErrUnsupportedImage):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: core.ErrUnsupportedImage.Error()})
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// GetCurrentUserProfile handles GET /api/v1/users/me.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	profile, err := h.users.GetProfile(c.Request.Context(), uid)
	if err != nil {
		h.mapUserErrorToStatus(c, "get_profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetCompletion handles GET /api/v1/users/me/completion.
func (h *UserHandler) GetCompletion(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	completion, err := h.users.GetCompletion(c.Request.Context(), uid)
	if err != nil {
		h.mapUserErrorToStatus(c, "get_completion", err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

// UpdateProfile handles PATCH /api/v1/users/me.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), uid, req)
	if err != nil {
		h.mapUserErrorToStatus(c, "update_profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UploadAvatar handles PUT /api/v1/users/me/avatar (multipart field "image").
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	upload, ok := readUpload(c, "image")
	if !ok {
		return
	}
	user, err := h.users.UploadAvatar(c.Request.Context(), uid, upload)
	if err != nil {
		h.mapUserErrorToStatus(c, "upload_avatar", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SubmitIDVerification handles PUT /api/v1/users/me/id-verification (multipart field "document").
func (h *UserHandler) SubmitIDVerification(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	upload, ok := readUpload(c, "document")
	if !ok {
		return
	}
	user, err := h.users.SubmitIDVerification(c.Request.Context(), uid, upload)
	if err != nil {
		h.mapUserErrorToStatus(c, "id_verification", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterPushToken handles PUT /api/v1/users/me/push-token.
func (h *UserHandler) RegisterPushToken(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.PushTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.RegisterPushToken(c.Request.Context(), uid, req.Token); err != nil {
		h.mapUserErrorToStatus(c, "push_token", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListNotifications handles GET /api/v1/users/me/notifications.
func (h *UserHandler) ListNotifications(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.users.ListNotifications(c.Request.Context(), uid, queryLimit(c))
	if err != nil {
		h.mapUserErrorToStatus(c, "list_notifications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}
