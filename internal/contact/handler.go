package contact

import (
	"errors"
	"fmt"
	"time"

	"cyborg-vpn/internal/constants"
	"cyborg-vpn/internal/httputil"
	"cyborg-vpn/internal/platform/logger"
	"cyborg-vpn/internal/platform/metrics"
	"cyborg-vpn/internal/platform/middleware"
	"cyborg-vpn/internal/security/audit"

	"github.com/gin-gonic/gin"
)

// Handler POST /api/contact；限流由路由上的 middleware.RateLimiter 先行處理
type Handler struct {
	validator *Validator
	deliverer Deliverer
	audit     *audit.AuditService
	metrics   *metrics.Metrics
}

// Option Handler 選項
type Option func(*Handler)

// WithDeliverer 替換寄送實作
func WithDeliverer(d Deliverer) Option {
	return func(h *Handler) {
		h.deliverer = d
	}
}

// WithAudit 設定審計服務
func WithAudit(a *audit.AuditService) Option {
	return func(h *Handler) {
		h.audit = a
	}
}

// WithMetrics 設定指標
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler 創建聯絡表單處理器
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		validator: NewValidator(),
		deliverer: &LogDeliverer{Delay: constants.DefaultDeliveryDelay},
		audit:     audit.NewAuditService(false),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Submit 解析、正規化、驗證並寄送聯絡表單
func (h *Handler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	meta := middleware.GetRequestMetadataFromGin(c)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			h.fail(c, fmt.Errorf("contact handler panic: %v", r))
		}
	}()

	raw, err := DecodeRaw(c.Request.Body)
	if err != nil {
		h.metrics.ObserveContact(metrics.ResultMalformed)
		logger.Warning(ctx, "Contact form body rejected",
			logger.WithRequestID(meta.RequestID),
			logger.WithAction("submit_contact"),
			logger.WithDetails(map[string]interface{}{"error": err.Error()}))
		httputil.InvalidBody(c)
		return
	}

	sub, err := h.validator.Validate(Normalize(raw))
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			h.fail(c, err)
			return
		}
		h.metrics.ObserveContact(metrics.ResultInvalid)
		h.audit.LogContactRejected(ctx, meta.Actor(), verr.Fields())
		httputil.BadRequest(c, verr.Error())
		return
	}

	h.audit.LogContactSubmission(ctx, meta.Actor(), sub.Locale.String(), sub.AuditFields())

	if err := h.deliverer.Deliver(ctx, sub); err != nil {
		h.fail(c, fmt.Errorf("deliver contact submission: %w", err))
		return
	}

	h.metrics.ObserveContact(metrics.ResultAccepted)
	logger.Info(ctx, "Contact form submission accepted",
		logger.WithRequestID(meta.RequestID),
		logger.WithLocale(sub.Locale.String()),
		logger.WithAction("submit_contact"),
		logger.WithDetails(map[string]interface{}{
			"client_id":   meta.ClientID,
			"duration_ms": time.Since(start).Milliseconds(),
		}))
	httputil.Success(c, constants.MsgContactSent)
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.metrics.ObserveContact(metrics.ResultError)
	httputil.InternalServerError(c, err)
}
