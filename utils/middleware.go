package utils

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Govind-619/Esdukas/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "RequestID"

// DiagnosticWriter persists diagnostic entries for failed requests
type DiagnosticWriter interface {
	WriteDiagnostic(ctx context.Context, entry *models.DiagnosticLog) error
}

// LoggerMiddleware logs request details
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		LogRequest(c.Request.Method, path, c.ClientIP(), c.Writer.Status(), time.Since(start))

		if query != "" {
			LogDebug("Query parameters: %s", query)
		}
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// ErrorHandlerMiddleware is the process-wide fallback. It recovers panics and
// handles errors attached with c.Error that no handler answered: a diagnostic
// entry is persisted and a generic 500 is returned. A failing diagnostic
// write only reaches the local error log.
func ErrorHandlerMiddleware(diagnostics DiagnosticWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				err := fmt.Errorf("panic: %v", rec)
				LogErrorWithStack(err, stack)
				handleServerError(c, diagnostics, err, string(stack))
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if appErr := GetAppError(err); appErr != nil && appErr.Code < http.StatusInternalServerError {
			RespondAppError(c, appErr)
			return
		}
		LogError("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		handleServerError(c, diagnostics, err, "")
	}
}

func handleServerError(c *gin.Context, diagnostics DiagnosticWriter, err error, stack string) {
	if diagnostics != nil {
		entry := &models.DiagnosticLog{
			Type:      "server-error",
			Message:   err.Error(),
			Stack:     stack,
			Path:      c.Request.URL.RequestURI(),
			RequestID: c.GetString(RequestIDKey),
		}
		if writeErr := diagnostics.WriteDiagnostic(context.WithoutCancel(c.Request.Context()), entry); writeErr != nil {
			LogError("Failed to persist diagnostic log: %v", writeErr)
		}
	}
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
