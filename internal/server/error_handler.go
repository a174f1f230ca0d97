package server

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/koyak/kombat_backend/internal/logging"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// ErrorHandler middleware converts accumulated gin errors into a uniform
// JSON response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := c.Writer.Status()
		if status < 400 {
			status = http.StatusInternalServerError
		}

		errorResponse := ErrorResponse{
			Status:    status,
			Message:   "An error occurred while processing your request",
			Path:      c.Request.URL.Path,
			Timestamp: time.Now(),
			RequestID: c.GetString("RequestID"),
		}

		if os.Getenv("APP_ENV") == "development" {
			errorResponse.Details = err.Error()
		}

		logging.Error("Request failed", map[string]interface{}{
			"path":       errorResponse.Path,
			"status":     status,
			"request_id": errorResponse.RequestID,
			"error":      err.Error(),
		})

		c.JSON(status, gin.H{"error": errorResponse})
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("RequestID", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs all requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get("RequestID")
		logging.LogHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), map[string]interface{}{
			"request_id": requestID,
		})
	}
}

// RecoveryMiddleware recovers from panics in handlers
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logging.Error("Panic in request handler", map[string]interface{}{
					"path":  c.Request.URL.Path,
					"panic": fmt.Sprintf("%v", err),
					"stack": string(debug.Stack()),
				})

				errorResponse := ErrorResponse{
					Status:    http.StatusInternalServerError,
					Message:   "An unexpected error occurred",
					Path:      c.Request.URL.Path,
					Timestamp: time.Now(),
					RequestID: c.GetString("RequestID"),
				}
				if os.Getenv("APP_ENV") == "development" {
					errorResponse.Details = fmt.Sprintf("%v", err)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errorResponse})
			}
		}()
		c.Next()
	}
}
