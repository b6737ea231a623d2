package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/youruser/fabricview/internal/util"
	"go.uber.org/zap"
)

// Logger logs one line per request through util.Logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("cost", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			util.Logger.Error("request", fields...)
			return
		}
		util.Logger.Info("request", fields...)
	}
}
