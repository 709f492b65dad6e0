// Package ratelimit 提供以客戶端識別碼為鍵的固定時間窗口准入控制。
//
// 儲存後端透過 Store 介面替換：單機部署使用 MemoryStore，多實例部署改用
// RedisStore 或 MongoStore 共用同一份配額。
package ratelimit

import (
	"context"
	"time"

	"cyborg-vpn/internal/constants"
)

// Decision 一次准入判斷的結果
type Decision struct {
	Allowed    bool
	Count      int           // 本窗口已准入的次數
	Limit      int           // 每窗口上限
	ResetAt    time.Time     // 窗口結束時間
	RetryAfter time.Duration // 以後端自身時鐘計算的剩餘窗口時間
}

// remaining 距離 resetAt 的剩餘時間，已過期時為 0
func remaining(resetAt, now time.Time) time.Duration {
	if resetAt.IsZero() || !resetAt.After(now) {
		return 0
	}
	return resetAt.Sub(now)
}

// Remaining 本窗口剩餘可用次數
func (d Decision) Remaining() int {
	if d.Count >= d.Limit {
		return 0
	}
	return d.Limit - d.Count
}

// Store 限流計數儲存。Allow 必須把「檢查後遞增」視為單一原子步驟。
type Store interface {
	// Allow 檢查並消耗 identifier 的一次配額
	Allow(ctx context.Context, identifier string) (Decision, error)
	// Name 後端名稱（用於日誌與指標）
	Name() string
	Close() error
}

// Sweeper 可主動清理過期記錄的後端
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Config 限流參數
type Config struct {
	Window          time.Duration
	Max             int
	CleanupInterval time.Duration
	KeyPrefix       string
}

// DefaultConfig 預設 60 秒內最多 5 次，每 5 分鐘清理一次
func DefaultConfig() Config {
	return Config{
		Window:          constants.DefaultRateLimitWindow,
		Max:             constants.DefaultRateLimitMax,
		CleanupInterval: constants.RateLimitCleanupInterval,
		KeyPrefix:       "contact",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.Max <= 0 {
		c.Max = d.Max
	}
	if c.CleanupInterval < 0 {
		c.CleanupInterval = 0
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
	return c
}

// Clock 時間來源
type Clock func() time.Time
