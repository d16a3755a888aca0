package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger пишет в лог каждый запрос. Приватные ошибки запроса логируются с уровнем error.
func Logger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := l.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(RequestIDKey),
		})

		if private := c.Errors.ByType(gin.ErrorTypePrivate); len(private) > 0 {
			entry.WithField("errors", private.String()).Error("request failed")
			return
		}
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Info("request rejected")
			return
		}
		entry.Debug("request handled")
	}
}
