package audit

import (
	"context"
	"sort"
	"time"

	"cyborg-vpn/internal/platform/logger"
)

// 審計事件類型
const (
	EventContactSubmitted = "contact_submitted"
	EventContactRejected  = "contact_rejected"
	EventRateLimit        = "rate_limit"
)

// AuditService 審計服務
type AuditService struct {
	enabled bool
	now     func() time.Time
}

// NewAuditService 創建審計服務
func NewAuditService(enabled bool) *AuditService {
	return &AuditService{
		enabled: enabled,
		now:     time.Now,
	}
}

// AuditEvent 審計事件
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	Action    string                 `json:"action"`
	Result    string                 `json:"result"` // success, rejected, blocked
	RequestID string                 `json:"request_id,omitempty"`
	ClientID  string                 `json:"client_id,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Locale    string                 `json:"locale,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Actor 發起請求的客戶端資訊
type Actor struct {
	RequestID string
	ClientID  string
	UserAgent string
}

// LogContactSubmission 記錄已通過驗證的聯絡表單
func (a *AuditService) LogContactSubmission(ctx context.Context, actor Actor, locale string, fields map[string]interface{}) {
	if !a.enabled {
		return
	}

	event := a.newEvent(actor, EventContactSubmitted, "submit_contact", "success")
	event.Locale = locale
	event.Details = fields
	a.log(ctx, event)
}

// LogContactRejected 記錄驗證失敗；只保留欄位名稱，不保留被拒絕的內容
func (a *AuditService) LogContactRejected(ctx context.Context, actor Actor, fields []string) {
	if !a.enabled {
		return
	}

	names := append([]string(nil), fields...)
	sort.Strings(names)

	event := a.newEvent(actor, EventContactRejected, "submit_contact", "rejected")
	event.Details = map[string]interface{}{
		"invalid_fields": names,
	}
	a.log(ctx, event)
}

// LogRateLimitExceeded 記錄速率限制超過
func (a *AuditService) LogRateLimitExceeded(ctx context.Context, actor Actor, endpoint, backend string) {
	if !a.enabled {
		return
	}

	event := a.newEvent(actor, EventRateLimit, "api_request", "blocked")
	event.Details = map[string]interface{}{
		"endpoint": endpoint,
		"backend":  backend,
		"reason":   "rate_limit_exceeded",
	}
	a.log(ctx, event)
}

// IsEnabled 檢查審計是否啟用
func (a *AuditService) IsEnabled() bool {
	return a.enabled
}

func (a *AuditService) newEvent(actor Actor, eventType, action, result string) AuditEvent {
	return AuditEvent{
		Timestamp: a.now(),
		EventType: eventType,
		Action:    action,
		Result:    result,
		RequestID: actor.RequestID,
		ClientID:  actor.ClientID,
		UserAgent: actor.UserAgent,
	}
}

// log 記錄審計事件
func (a *AuditService) log(ctx context.Context, event AuditEvent) {
	details := map[string]interface{}{
		"event_type": event.EventType,
		"result":     event.Result,
		"timestamp":  event.Timestamp.UTC().Format(time.RFC3339),
	}
	if event.ClientID != "" {
		details["client_id"] = event.ClientID
	}
	if event.UserAgent != "" {
		details["user_agent"] = event.UserAgent
	}
	for k, v := range event.Details {
		details[k] = v
	}

	logger.Info(ctx, "[AUDIT] "+event.EventType,
		logger.WithAction(event.Action),
		logger.WithRequestID(event.RequestID),
		logger.WithLocale(event.Locale),
		logger.WithLabels(map[string]string{"log_type": "audit"}),
		logger.WithDetails(details),
	)
}
