package constants

import "time"

// HTTP 請求相關常數
const (
	// 默認值（可被配置覆蓋）
	DefaultMaxRequestBodySize = 64 << 10 // 64KB
	DefaultRequestTimeout     = 30       // 秒
)

// Rate Limiting 默認值
const (
	DefaultRateLimitWindow   = 60 * time.Second
	DefaultRateLimitMax      = 5
	RateLimitCleanupInterval = 5 * time.Minute
	// 無法識別來源的請求共用同一配額
	UnknownClientID = "unknown"
)

// 聯絡表單欄位長度限制（以字元計）
const (
	MinNameLength    = 2
	MaxNameLength    = 50
	MaxEmailLength   = 100
	MinSubjectLength = 5
	MaxSubjectLength = 100
	MinMessageLength = 10
	MaxMessageLength = 1000
)

// 模擬寄送延遲
const DefaultDeliveryDelay = 500 * time.Millisecond
