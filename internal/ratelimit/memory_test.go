package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore(t *testing.T, clock *fakeClock) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(Config{Window: time.Minute, Max: 5}, WithClock(clock.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStoreSixthRequestRejected(t *testing.T) {
	clock := newFakeClock()
	s := newTestMemoryStore(t, clock)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := s.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "第 %d 次請求應被允許", i)
		assert.Equal(t, i, d.Count)
		clock.Advance(time.Second)
	}

	d, err := s.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 5, d.Count, "拒絕時不應遞增")
	assert.Equal(t, 0, d.Remaining())
}

func TestMemoryStoreNewWindowAdmitsAgain(t *testing.T) {
	clock := newFakeClock()
	s := newTestMemoryStore(t, clock)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := s.Allow(ctx, "client")
		require.NoError(t, err)
	}

	// 窗口邊界上仍屬同一窗口
	clock.Advance(time.Minute)
	d, err := s.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	clock.Advance(time.Millisecond)
	d, err = s.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestMemoryStoreIdentifiersAreIndependent(t *testing.T) {
	clock := newFakeClock()
	s := newTestMemoryStore(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = s.Allow(ctx, "a")
	}
	d, _ := s.Allow(ctx, "a")
	assert.False(t, d.Allowed)

	d, _ = s.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestMemoryStoreSweepRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	s := newTestMemoryStore(t, clock)
	ctx := context.Background()

	_, _ = s.Allow(ctx, "old")
	clock.Advance(30 * time.Second)
	_, _ = s.Allow(ctx, "recent")
	require.Equal(t, 2, s.Len())

	clock.Advance(31 * time.Second)
	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreConcurrentAllow(t *testing.T) {
	clock := newFakeClock()
	s := newTestMemoryStore(t, clock)

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Allow(context.Background(), "burst")
			if err == nil && d.Allowed {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), admitted)
}

func TestRemaining(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 42*time.Second, remaining(now.Add(42*time.Second), now))
	assert.Zero(t, remaining(time.Time{}, now))
	assert.Zero(t, remaining(now.Add(-time.Second), now))
}

func TestMemoryStoreRetryAfterUsesStoreClock(t *testing.T) {
	// 與真實時間差很遠的時鐘，剩餘時間仍以後端時鐘計算
	now := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(Config{Window: time.Minute, Max: 1}, WithClock(func() time.Time { return now }))
	defer s.Close()

	_, err := s.Allow(context.Background(), "198.51.100.7")
	require.NoError(t, err)

	now = now.Add(15 * time.Second)
	d, err := s.Allow(context.Background(), "198.51.100.7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*time.Second, d.RetryAfter)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Minute, cfg.Window)
	assert.Equal(t, 5, cfg.Max)
	assert.Equal(t, "contact", cfg.KeyPrefix)
}

func TestJanitorSweepsPeriodically(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(Config{Window: time.Minute, Max: 5, CleanupInterval: 5 * time.Millisecond}, WithClock(clock.Now))
	defer s.Close()

	_, _ = s.Allow(context.Background(), "x")
	clock.Advance(2 * time.Minute)

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}
