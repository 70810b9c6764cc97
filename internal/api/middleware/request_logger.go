package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/utils"
)

const requestIDHeader = "X-Request-Id"

// RequestLogger tags the request with an id and writes one log line when it
// finishes. Health and metrics probes are logged at debug.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		c.Set("request_id", reqID)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		userID, _ := c.Get("user_id")

		entry := l.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes":      c.Writer.Size(),
			"ip":         c.ClientIP(),
			"user_id":    userID,
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		case route == "/health" || route == "/metrics" || route == "/ping":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}

// Recovery turns a handler panic into a 500 and logs it with the request id.
func Recovery(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				reqID, _ := c.Get("request_id")
				l.WithFields(logrus.Fields{
					"request_id": reqID,
					"panic":      r,
					"route":      c.FullPath(),
				}).Error("handler panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
					Code:    utils.CodeInternal,
					Message: http.StatusText(http.StatusInternalServerError),
				})
			}
		}()
		c.Next()
	}
}
