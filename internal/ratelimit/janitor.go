package ratelimit

import (
	"context"
	"sync"
	"time"

	"cyborg-vpn/internal/platform/logger"
)

// janitor 定期呼叫 Sweeper，Close 後停止
type janitor struct {
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func startJanitor(name string, s Sweeper, every time.Duration) *janitor {
	j := &janitor{stop: make(chan struct{})}
	if every <= 0 {
		return j
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-j.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), every)
				removed, err := s.Sweep(ctx)
				cancel()
				if err != nil {
					logger.Warning(context.Background(), "清理過期限流記錄失敗",
						logger.WithAction("ratelimit_sweep"),
						logger.WithDetails(map[string]interface{}{"backend": name, "error": err.Error()}))
					continue
				}
				if removed > 0 {
					logger.Debug(context.Background(), "已清理過期限流記錄",
						logger.WithAction("ratelimit_sweep"),
						logger.WithDetails(map[string]interface{}{"backend": name, "removed": removed}))
				}
			}
		}
	}()
	return j
}

func (j *janitor) close() {
	j.once.Do(func() { close(j.stop) })
	j.wg.Wait()
}
