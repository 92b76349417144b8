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

// AuthHandler handles sign-up, profile initialization and account emails.
type AuthHandler struct {
	accounts core.AccountService
	users    core.UserService
	logger   *zap.Logger
}

func NewAuthHandler(accounts core.AccountService, users core.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, users: users, logger: logger}
}

func (h *AuthHandler) mapAccountErrorToStatus(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, core.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrEmailTaken.Error(), Code: "email_taken", Action: "sign_in"})
	case errors.Is(err, core.ErrAlreadyVerified):
		c.JSON(http.StatusConflict, ErrorResponse{Error: core.ErrAlreadyVerified.Error(), Code: "already_verified"})
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found"})
	case errors.Is(err, core.ErrIdentityProvider), errors.Is(err, core.ErrEmailDelivery):
		respondRemote(c, h.logger, op, err)
	default:
		respondInternal(c, h.logger, op, err)
	}
}

// SignUp handles POST /api/v1/auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.accounts.SignUp(c.Request.Context(), req)
	if err != nil {
		h.mapAccountErrorToStatus(c, "signup", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// PasswordReset handles POST /api/v1/auth/password-reset. Unknown emails get the same answer as known ones.
func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := h.accounts.SendPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		h.mapAccountErrorToStatus(c, "password_reset", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// InitializeUserProfile handles POST /api/v1/users/initialize.
// Called after client-side Firebase sign-in to make sure the profile document exists.
func (h *AuthHandler) InitializeUserProfile(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.users.GetOrCreateUser(c.Request.Context(), uid,
		c.GetString(middleware.ContextUserEmail), c.GetString(middleware.ContextDisplayName))
	if err != nil {
		h.mapAccountErrorToStatus(c, "initialize_profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ResendVerification handles POST /api/v1/users/me/verification-email.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	status, err := h.accounts.ResendVerification(c.Request.Context(), uid)
	if err != nil {
		h.mapAccountErrorToStatus(c, "resend_verification", err)
		return
	}
	c.JSON(http.StatusOK, status)
}
