package httputil

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"cyborg-vpn/internal/constants"
	"cyborg-vpn/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

// SafeError 安全的錯誤響應（不洩露內部信息）
func SafeError(c *gin.Context, statusCode int, err error, userMessage string) {
	// 記錄真實錯誤到日誌（用於調試）
	logger.Error(c.Request.Context(), fmt.Sprintf("API Error: %v", err),
		logger.WithRequestID(requestID(c)),
		logger.WithDetails(map[string]interface{}{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": statusCode,
		}))

	Fail(c, statusCode, userMessage)
}

// InternalServerError 內部服務器錯誤
func InternalServerError(c *gin.Context, err error) {
	SafeError(c, http.StatusInternalServerError, err, constants.MsgUnexpectedError)
}

// BadRequest 錯誤的請求
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// InvalidBody 無法解析的請求內容
func InvalidBody(c *gin.Context) {
	BadRequest(c, constants.MsgInvalidRequestBody)
}

// RateLimitExceeded 速率限制超過；retryAfter > 0 時附帶 Retry-After 標頭
func RateLimitExceeded(c *gin.Context, retryAfter time.Duration) {
	if retryAfter > 0 {
		seconds := int(math.Ceil(retryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
	}
	Fail(c, http.StatusTooManyRequests, constants.MsgTooManyRequests)
}

// NotFoundError 資源不存在
func NotFoundError(c *gin.Context, message string) {
	if message == "" {
		message = "Not found"
	}
	Fail(c, http.StatusNotFound, message)
}

func requestID(c *gin.Context) string {
	return c.Writer.Header().Get(RequestIDHeader)
}
