package middleware

import (
	"net/http"

	"cyborg-vpn/internal/constants"
	"cyborg-vpn/internal/httputil"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimiter 限制請求體大小的中間件；超過上限視為無法解析的請求內容
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = constants.DefaultMaxRequestBodySize
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			httputil.InvalidBody(c)
			return
		}

		// Content-Length 未知或不實時由讀取端截斷
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
