package middleware

import (
	"cyborg-vpn/internal/httputil"
	"cyborg-vpn/internal/platform/logger"
	"cyborg-vpn/internal/platform/metrics"
	"cyborg-vpn/internal/ratelimit"
	"cyborg-vpn/internal/security/audit"

	"github.com/gin-gonic/gin"
)

// RateLimiter 以 ratelimit.Store 為後端的速率限制器
type RateLimiter struct {
	store   ratelimit.Store
	metrics *metrics.Metrics
	audit   *audit.AuditService
}

// NewRateLimiter 創建速率限制器；metrics 與 auditor 可為 nil
func NewRateLimiter(store ratelimit.Store, m *metrics.Metrics, auditor *audit.AuditService) *RateLimiter {
	if auditor == nil {
		auditor = audit.NewAuditService(false)
	}
	return &RateLimiter{
		store:   store,
		metrics: m,
		audit:   auditor,
	}
}

// Middleware 返回 Gin 中間件
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		meta := GetRequestMetadataFromGin(c)

		decision, err := rl.store.Allow(ctx, meta.ClientID)
		if err != nil {
			// 後端故障時放行
			rl.metrics.ObserveRateLimit(rl.store.Name(), metrics.DecisionError)
			logger.Warning(ctx, "Rate limit backend unavailable, admitting request",
				logger.WithRequestID(meta.RequestID),
				logger.WithAction("rate_limit"),
				logger.WithDetails(map[string]interface{}{
					"backend": rl.store.Name(),
					"error":   err.Error(),
				}))
			c.Next()
			return
		}

		if !decision.Allowed {
			rl.metrics.ObserveRateLimit(rl.store.Name(), metrics.DecisionRejected)
			rl.metrics.ObserveContact(metrics.ResultRateLimited)
			rl.audit.LogRateLimitExceeded(ctx, meta.Actor(), c.FullPath(), rl.store.Name())
			httputil.RateLimitExceeded(c, decision.RetryAfter)
			return
		}

		rl.metrics.ObserveRateLimit(rl.store.Name(), metrics.DecisionAllowed)
		c.Next()
	}
}
