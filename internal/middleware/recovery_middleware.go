package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a logged 500 carrying the request ID.
// A response that already started streaming is only aborted.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		panic("RecoveryMiddleware requires a non-nil zap.Logger instance")
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := c.Writer.Header().Get(RequestIDHeader)
				logger.Error("Handler panicked",
					zap.Any("panic", err),
					zap.String("request_id", requestID),
					zap.String("user_id", UserID(c)),
					zap.String("route", c.FullPath()),
					zap.ByteString("stack", debug.Stack()),
				)
				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, ErrorResponse{
						Error:   "An unexpected internal server error occurred.",
						Code:    "internal",
						Details: requestID,
					})
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
