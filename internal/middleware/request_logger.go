package middleware

import (
	"time"

	"github.com/alumnihub/alumni-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ctxRequestID = "request_id"

// quietPaths are polled constantly and only logged when they fail
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

// RequestLogger tags each request with an id, stores a request-scoped logger in the
// request context (see logger.Ctx) and writes one access line when the handler returns.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		c.Set(ctxRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		reqLog := logger.WithRequestID(requestID)
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		if quietPaths[c.Request.URL.Path] && status < 500 {
			return
		}

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = reqLog.Error()
		case status >= 400:
			event = reqLog.Warn()
		default:
			event = reqLog.Info()
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if uid := GetUserID(c); uid != "" {
			event = event.Str("user_id", uid).Str("role", string(GetUserRole(c)))
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
