package middleware

import (
	"cyborg-vpn/internal/httputil"
	"cyborg-vpn/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	RequestIDHeader = httputil.RequestIDHeader
	RequestIDKey    = "request_id"
	// 客戶端提供的 ID 超過此長度時改為自行生成
	maxRequestIDLength = 128
)

// RequestIDMiddleware 為每個請求生成唯一 ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 優先使用客戶端提供的 Request ID（如果有的話）
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = logger.NewTraceID()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		// 同一請求的日誌共用 trace
		ctx := logger.WithTraceID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID 從 context 獲取 Request ID
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
