package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
	"rentshare-backend-go/internal/middleware"
)

const (
	defaultPageSize = 20
	maxUploadBytes  = 10 << 20
	genericError    = "An unexpected internal server error occurred."
	remoteError     = "A required service is temporarily unavailable. Please try again."
)

// currentUser returns the authenticated uid or writes a 401.
func currentUser(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: User ID not found in context"})
		return "", false
	}
	return uid, true
}

// bindJSON binds and validates the body, writing a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: validationDetails(err)})
		return false
	}
	return true
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultPageSize
	}
	return n
}

// readUpload reads the multipart file in field fully into memory.
func readUpload(c *gin.Context, field string) (core.FileUpload, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	fh, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Multipart field %q is required", field)})
		return core.FileUpload{}, false
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "File is too large"})
		return core.FileUpload{}, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Could not read uploaded file"})
		return core.FileUpload{}, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Could not read uploaded file"})
		return core.FileUpload{}, false
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return core.FileUpload{Filename: fh.Filename, ContentType: contentType, Data: data}, true
}

// quotaError maps plan and quota errors, shared by listing and rental handlers.
func quotaError(err error) (int, ErrorResponse, bool) {
	switch {
	case errors.Is(err, core.ErrNoPlan):
		return http.StatusForbidden, ErrorResponse{Error: core.ErrNoPlan.Error(), Code: "no_plan", Action: "claim_plan"}, true
	case errors.Is(err, core.ErrPlanInactive):
		return http.StatusPaymentRequired, ErrorResponse{Error: core.ErrPlanInactive.Error(), Code: "plan_inactive", Action: "renew_plan"}, true
	case errors.Is(err, core.ErrLimitReached):
		return http.StatusPaymentRequired, ErrorResponse{Error: core.ErrLimitReached.Error(), Code: "limit_reached", Action: "upgrade_plan"}, true
	case errors.Is(err, core.ErrInvalidQuotaAction):
		return http.StatusBadRequest, ErrorResponse{Error: core.ErrInvalidQuotaAction.Error()}, true
	}
	return 0, ErrorResponse{}, false
}

// respondInternal logs err and writes a generic 500.
func respondInternal(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Error("Internal Server Error", zap.String("op", op), zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: genericError})
}

// respondRemote logs err and writes a generic 502.
func respondRemote(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Error("Remote service failure", zap.String("op", op), zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadGateway, ErrorResponse{Error: remoteError})
}
