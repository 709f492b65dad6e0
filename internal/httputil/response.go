package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader 請求 ID 標頭
const RequestIDHeader = "X-Request-ID"

// Envelope 所有 JSON API 共用的回應格式
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success 回傳成功訊息.
func Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// Fail 回傳失敗訊息並中止後續處理.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: message})
}
