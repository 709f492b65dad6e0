package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// fixedWindowScript 固定窗口檢查與遞增，整段在 Redis 內原子執行。
// 回傳 {admitted, count, pttl}。
var fixedWindowScript = redis.NewScript(`
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local current = redis.call('GET', KEYS[1])
if not current then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('SET', KEYS[1], 1, 'PX', window)
  return {1, 1, window}
end
current = tonumber(current)
if current >= limit then
  return {0, current, ttl}
end
current = redis.call('INCR', KEYS[1])
return {1, current, ttl}
`)

// RedisStore 以 Redis 鍵過期實作的共用限流儲存，過期鍵由 Redis 自行清除
type RedisStore struct {
	client redis.UniversalClient
	cfg    Config
	now    Clock
}

// NewRedisStore 創建 Redis 限流器
func NewRedisStore(client redis.UniversalClient, cfg Config) *RedisStore {
	return &RedisStore{
		client: client,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// Name 後端名稱
func (s *RedisStore) Name() string { return "redis" }

// Key 取得 identifier 在 Redis 中的鍵
func (s *RedisStore) Key(identifier string) string {
	return hashedKey(s.cfg.KeyPrefix, identifier)
}

// Allow 檢查並消耗一次配額
func (s *RedisStore) Allow(ctx context.Context, identifier string) (Decision, error) {
	windowMS := s.cfg.Window.Milliseconds()
	res, err := fixedWindowScript.Run(ctx, s.client,
		[]string{s.Key(identifier)},
		windowMS, int64(s.cfg.Max),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit script: %w", err)
	}

	vals, err := toInt64s(res)
	if err != nil {
		return Decision{}, err
	}

	ttl := time.Duration(vals[2]) * time.Millisecond
	return Decision{
		Allowed:    vals[0] == 1,
		Count:      int(vals[1]),
		Limit:      s.cfg.Max,
		ResetAt:    s.now().Add(ttl),
		RetryAfter: ttl,
	}, nil
}

// Close 關閉 Redis 連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func toInt64s(res interface{}) ([]int64, error) {
	items, ok := res.([]interface{})
	if !ok || len(items) != 3 {
		return nil, fmt.Errorf("unexpected redis script result: %v", res)
	}
	out := make([]int64, len(items))
	for i, item := range items {
		v, ok := item.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected redis script value at %d: %v", i, item)
		}
		out[i] = v
	}
	return out, nil
}
