package server

import (
	"context"
	"fmt"
	"time"

	"cyborg-vpn/internal/platform/config"
	"cyborg-vpn/internal/platform/driver"
	"cyborg-vpn/internal/platform/health"
	"cyborg-vpn/internal/ratelimit"
)

// RateLimitBackend 限流後端與其連線的生命週期
type RateLimitBackend struct {
	Store ratelimit.Store
	Ping  health.PingFunc
	close []func() error
}

// Close 依建立的相反順序釋放資源
func (b *RateLimitBackend) Close() error {
	var firstErr error
	for i := len(b.close) - 1; i >= 0; i-- {
		if err := b.close[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RateLimitConfig 將配置轉為 ratelimit.Config
func RateLimitConfig(cfg *config.Config) ratelimit.Config {
	rl := cfg.Limits.RateLimiting
	return ratelimit.Config{
		Window:          time.Duration(rl.WindowSeconds) * time.Second,
		Max:             rl.MaxRequests,
		CleanupInterval: time.Duration(rl.CleanupInterval) * time.Minute,
		KeyPrefix:       rl.KeyPrefix,
	}
}

// NewRateLimitBackend 依 limits.rate_limiting.backend 建立限流儲存
func NewRateLimitBackend(ctx context.Context, cfg *config.Config) (*RateLimitBackend, error) {
	rlCfg := RateLimitConfig(cfg)

	switch cfg.RateLimitBackend() {
	case config.BackendMemory:
		store := ratelimit.NewMemoryStore(rlCfg)
		return &RateLimitBackend{
			Store: store,
			close: []func() error{store.Close},
		}, nil

	case config.BackendRedis:
		client, err := driver.ConnectRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		store := ratelimit.NewRedisStore(client, rlCfg)
		return &RateLimitBackend{
			Store: store,
			Ping:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close: []func() error{store.Close},
		}, nil

	case config.BackendMongo:
		conn, err := driver.ConnectMongo(ctx, cfg.Database.Mongo)
		if err != nil {
			return nil, err
		}
		store, err := ratelimit.NewMongoStore(ctx, conn.Database, rlCfg)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &RateLimitBackend{
			Store: store,
			Ping:  conn.Ping,
			close: []func() error{conn.Close, store.Close},
		}, nil

	default:
		return nil, fmt.Errorf("不支援的限流後端: %s", cfg.RateLimitBackend())
	}
}
