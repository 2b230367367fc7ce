package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every error the API returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler recovers panics in later handlers and answers with a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				GetLogger().Error("unhandled panic",
					zap.Any("panic", rec),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))

				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError logs and sends an error response. Server-side failures are logged
// at error level, client mistakes at debug.
func JSONError(c *gin.Context, status int, message string, details string) {
	fields := []zap.Field{zap.Int("status", status), zap.String("details", details)}
	switch {
	case status >= http.StatusInternalServerError:
		GetLogger().Error(message, fields...)
	case status == http.StatusNotFound || status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		GetLogger().Debug(message, fields...)
	default:
		GetLogger().Warn(message, fields...)
	}
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}
