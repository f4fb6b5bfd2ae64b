package web

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rafaelDom/TestJuridoc/internal/observability"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for request ID.
	RequestIDKey = "requestID"
)

// requestIDMiddleware reuses the inbound X-Request-ID or generates one, and
// stores it in the gin context, the request context and the response.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(observability.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

// GetRequestID returns the request ID from the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if requestID, ok := id.(string); ok {
			return requestID
		}
	}
	return ""
}

// recoveryMiddleware turns a panic into a 500 answer.
func recoveryMiddleware(logger observability.Logger, enableStackTrace bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []observability.Field{
					observability.String("error", fmt.Sprint(err)),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.String("client_ip", c.ClientIP()),
				}
				if requestID := GetRequestID(c); requestID != "" {
					fields = append(fields, observability.String("request_id", requestID))
				}
				if enableStackTrace {
					fields = append(fields, observability.String("stack", string(debug.Stack())))
				}

				logger.Error("panic recovered", fields...)

				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()
	}
}

// loggingMiddleware logs every completed request and records its metrics.
func loggingMiddleware(logger observability.Logger, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		metrics.observeRequest(c.Request.Method, status, latency)

		fields := []observability.Field{
			observability.String("request_id", GetRequestID(c)),
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.Int("status", status),
			observability.Duration("latency", latency),
			observability.String("client_ip", c.ClientIP()),
			observability.Int("body_size", c.Writer.Size()),
		}
		logRequestByStatus(logger, status, fields)
	}
}

// logRequestByStatus logs the request with a level based on status code.
func logRequestByStatus(logger observability.Logger, status int, fields []observability.Field) {
	switch {
	case status >= 500:
		logger.Error("request completed", fields...)
	case status >= 400:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}
