package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/0xmhha/session-analytics/pkg/logger"
)

// gin context keys.
const (
	ctxRequestID    = "request_id"
	ctxAdminSubject = "admin_subject"
)

// RequestID reuses the caller's X-Request-ID or generates a UUID, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Set(ctxRequestID, reqID)
		c.Header(HeaderRequestID, reqID)
		c.Next()
	}
}

// AccessLog logs one line per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"request_id", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", kv...)
		case status >= http.StatusBadRequest:
			log.Warn("request", kv...)
		default:
			log.Debug("request", kv...)
		}
	}
}

// Recovery turns handler panics into 500 responses.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		log.Error("panic in handler",
			"request_id", c.GetString(ctxRequestID),
			"path", c.Request.URL.Path,
			"panic", recovered)
		abortError(c, http.StatusInternalServerError, "internal server error")
	})
}

// CORS allows browser calls from origins. An empty list allows any origin
// but then credentials are not allowed.
func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PATCH", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			HeaderAPIKey, HeaderRequestID,
		},
		ExposeHeaders: []string{
			HeaderRequestID, "Content-Disposition",
		},
		MaxAge: 12 * time.Hour,
	}

	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}

	return cors.New(config)
}

// abortError aborts with a JSON error body carrying the request id.
func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     msg,
		RequestID: c.GetString(ctxRequestID),
	})
}
