package dmhttp

import (
	"fmt"
	"time"

	"github.com/DeviceTrust/DeviceTrust/pkg/dmlog"
	"go.uber.org/zap"
)

// LoggerWithDmlog 用dmlog记录请求日志的中间件
func LoggerWithDmlog(log dmlog.Log) HandlerFunc {
	return func(c *Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		if latency > time.Minute {
			latency = latency.Truncate(time.Second)
		}

		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		log.Debug(fmt.Sprintf("|%s| %d| %s", c.Request.Method, c.Writer.Status(), path),
			zap.String("clientip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
			zap.String("latency", fmt.Sprintf("%v", latency)))
	}
}
