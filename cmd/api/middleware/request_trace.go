package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"redgen/httpclient"
)

const headerRequestID = "X-Request-Id"

// RequestTrace는 모든 요청에 Request ID를 보장하고 컨텍스트와 응답 헤더에 저장한다.
// 이후 Gemini 호출과 페이지 요청도 같은 ID를 달고 나간다.
func RequestTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(httpclient.WithRequestID(c.Request.Context(), requestID))
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Next()
	}
}
