package driver

import (
	"context"
	"fmt"
	"time"

	"cyborg-vpn/internal/platform/config"
	"cyborg-vpn/internal/platform/logger"

	"github.com/go-redis/redis/v8"
)

const defaultRedisDialTimeout = 5 * time.Second

// NewRedisClient 依配置建立 Redis 客戶端（不連線）
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: seconds(cfg.DialTimeout, defaultRedisDialTimeout),
	})
}

// ConnectRedis 建立 Redis 客戶端並確認可用
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := NewRedisClient(cfg)

	ctx, cancel := context.WithTimeout(ctx, seconds(cfg.DialTimeout, defaultRedisDialTimeout))
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.Addr, err)
	}

	logger.Info(ctx, "Redis connected",
		logger.WithAction("connect_redis"),
		logger.WithDetails(map[string]interface{}{
			"addr": cfg.Addr,
			"db":   cfg.DB,
		}))
	return client, nil
}
