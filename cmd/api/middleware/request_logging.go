package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"redgen/config"
	"redgen/httpclient"
)

// RequestLoggingMiddleware 는 요청 진입부터 응답까지 걸린 시간을 로깅한다.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		durationMillis := time.Since(start).Milliseconds()

		config.Log.Infof(
			"api_request method=%s path=%s status=%d duration_ms=%d request_id=%s",
			method,
			path,
			status,
			durationMillis,
			httpclient.RequestID(c.Request.Context()),
		)
	}
}
