package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request with structured fields and recovers
// from handler panics.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		defer func() {
			if recovered := recover(); recovered != nil {
				log.WithFields(logrus.Fields{
					"method":    c.Request.Method,
					"path":      c.Request.URL.Path,
					"client_ip": c.ClientIP(),
					"user_id":   c.GetInt64("user_id"),
					"panic":     fmt.Sprintf("%v", recovered),
					"stack":     string(debug.Stack()),
				}).Error("request panicked")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "INTERNAL_ERROR",
						"message": "Internal server error",
					},
				})
			}
		}()

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"query":     c.Request.URL.RawQuery,
			"status":    c.Writer.Status(),
			"client_ip": c.ClientIP(),
			"user_id":   c.GetInt64("user_id"),
			"latency":   time.Since(start).String(),
		})

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}
