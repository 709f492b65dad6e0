package contact

import (
	"context"
	"time"

	"cyborg-vpn/internal/platform/logger"
)

// Deliverer 將通過驗證的表單送往客服信箱
type Deliverer interface {
	Deliver(ctx context.Context, sub *Submission) error
}

// LogDeliverer 尚未串接郵件服務前的替代實作：記錄日誌並模擬寄送延遲
type LogDeliverer struct {
	Delay time.Duration
}

// Deliver 等待 Delay 後回傳；context 取消時提前返回
func (d *LogDeliverer) Deliver(ctx context.Context, sub *Submission) error {
	if d.Delay > 0 {
		timer := time.NewTimer(d.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	logger.Info(ctx, "Contact submission delivered",
		logger.WithAction("deliver_contact"),
		logger.WithLocale(sub.Locale.String()),
		logger.WithDetails(map[string]interface{}{
			"subject":  sub.Subject,
			"delay_ms": d.Delay.Milliseconds(),
		}))
	return nil
}
