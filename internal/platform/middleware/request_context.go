package middleware

import (
	"context"
	"strings"

	"cyborg-vpn/internal/constants"
	"cyborg-vpn/internal/security/audit"

	"github.com/gin-gonic/gin"
)

// RequestMetadata 請求元數據
type RequestMetadata struct {
	ClientID  string
	UserAgent string
	RequestID string
}

// Actor 轉為審計用的客戶端資訊
func (m *RequestMetadata) Actor() audit.Actor {
	return audit.Actor{
		RequestID: m.RequestID,
		ClientID:  m.ClientID,
		UserAgent: m.UserAgent,
	}
}

// Context keys
type contextKey string

const (
	requestMetadataKey contextKey = "request_metadata"
)

// RequestMetadataMiddleware 提取請求元數據並存儲到 context
func RequestMetadataMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		metadata := &RequestMetadata{
			ClientID:  GetClientIP(c),
			UserAgent: c.Request.UserAgent(),
			RequestID: GetRequestID(c),
		}

		c.Set(string(requestMetadataKey), metadata)

		ctx := context.WithValue(c.Request.Context(), requestMetadataKey, metadata)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetClientIP 限流用的客戶端識別碼：X-Forwarded-For 第一個位址、X-Real-IP、
// 直連位址，皆無法取得時回傳共用的 "unknown"
func GetClientIP(c *gin.Context) string {
	// X-Forwarded-For 可能包含多個 IP，取第一個（最初的客戶端）
	if forwarded := c.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	// 不經過 gin 的 trusted proxy 判斷，直接取連線位址
	if remote := c.RemoteIP(); remote != "" {
		return remote
	}

	return constants.UnknownClientID
}

// GetRequestMetadata 從 context 獲取請求元數據
func GetRequestMetadata(ctx context.Context) *RequestMetadata {
	if metadata, ok := ctx.Value(requestMetadataKey).(*RequestMetadata); ok {
		return metadata
	}
	return &RequestMetadata{
		ClientID:  constants.UnknownClientID,
		UserAgent: "unknown",
	}
}

// GetRequestMetadataFromGin 從 gin.Context 獲取請求元數據
func GetRequestMetadataFromGin(c *gin.Context) *RequestMetadata {
	if metadata, exists := c.Get(string(requestMetadataKey)); exists {
		if meta, ok := metadata.(*RequestMetadata); ok {
			return meta
		}
	}
	return &RequestMetadata{
		ClientID:  GetClientIP(c),
		UserAgent: c.Request.UserAgent(),
		RequestID: GetRequestID(c),
	}
}
