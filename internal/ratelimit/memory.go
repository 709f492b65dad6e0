package ratelimit

import (
	"context"
	"sync"
	"time"
)

// record 單一客戶端的窗口計數
type record struct {
	count     int
	resetTime time.Time
}

// MemoryStore 行程內的固定窗口計數表，多實例部署時各自獨立計數
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	cfg     Config
	now     Clock
	janitor *janitor
}

// MemoryOption MemoryStore 選項
type MemoryOption func(*MemoryStore)

// WithClock 注入時間來源（測試用）
func WithClock(clock Clock) MemoryOption {
	return func(s *MemoryStore) {
		s.now = clock
	}
}

// NewMemoryStore 創建記憶體限流器，並啟動定期清理
func NewMemoryStore(cfg Config, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*record),
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.janitor = startJanitor(s.Name(), s, s.cfg.CleanupInterval)
	return s
}

// Name 後端名稱
func (s *MemoryStore) Name() string { return "memory" }

// Allow 檢查並消耗一次配額
func (s *MemoryStore) Allow(_ context.Context, identifier string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, exists := s.records[identifier]

	// 新客戶端或窗口已過期：重新開始計數
	if !exists || now.After(rec.resetTime) {
		rec = &record{count: 1, resetTime: now.Add(s.cfg.Window)}
		s.records[identifier] = rec
		return s.decision(true, rec, now), nil
	}

	// 超過上限時不再遞增
	if rec.count >= s.cfg.Max {
		return s.decision(false, rec, now), nil
	}

	rec.count++
	return s.decision(true, rec, now), nil
}

func (s *MemoryStore) decision(allowed bool, rec *record, now time.Time) Decision {
	return Decision{
		Allowed:    allowed,
		Count:      rec.count,
		Limit:      s.cfg.Max,
		ResetAt:    rec.resetTime,
		RetryAfter: remaining(rec.resetTime, now),
	}
}

// Sweep 移除所有已過期的記錄
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, rec := range s.records {
		if now.After(rec.resetTime) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// Len 目前保存的記錄數
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close 停止定期清理
func (s *MemoryStore) Close() error {
	s.janitor.close()
	return nil
}
