package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cyborg-vpn/internal/httputil"
	"cyborg-vpn/internal/platform/logger"
	"cyborg-vpn/internal/platform/metrics"
	"cyborg-vpn/internal/platform/middleware"
	"cyborg-vpn/internal/ratelimit"
	"cyborg-vpn/internal/security/audit"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDeliverer struct {
	mu   sync.Mutex
	subs []*Submission
	err  error
	pan  bool
}

func (d *recordingDeliverer) Deliver(_ context.Context, sub *Submission) error {
	if d.pan {
		panic("smtp client exploded")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, sub)
	return d.err
}

type fixture struct {
	router    *gin.Engine
	clock     *testClock
	deliverer *recordingDeliverer
	metrics   *metrics.Metrics
	logs      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var logs bytes.Buffer
	t.Cleanup(logger.SetOutput(&logs))

	clock := &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := ratelimit.NewMemoryStore(ratelimit.Config{Window: time.Minute, Max: 5}, ratelimit.WithClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		clock:     clock,
		deliverer: &recordingDeliverer{},
		metrics:   metrics.New(),
		logs:      &logs,
	}

	h := NewHandler(
		WithDeliverer(f.deliverer),
		WithMetrics(f.metrics),
		WithAudit(audit.NewAuditService(true)),
	)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RequestMetadataMiddleware())
	r.POST("/api/contact",
		middleware.NewRateLimiter(store, f.metrics, nil).Middleware(),
		middleware.RequestSizeLimiter(4<<10),
		h.Submit,
	)
	f.router = r
	return f
}

func (f *fixture) post(t *testing.T, body string, ip string) (*httptest.ResponseRecorder, httputil.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip)
	f.router.ServeHTTP(rec, req)

	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func validBody(t *testing.T) string {
	return mustJSON(t, validRaw())
}

func TestSubmitChineseSubmission(t *testing.T) {
	f := newFixture(t)

	rec, env := f.post(t, mustJSON(t, map[string]string{
		"name":    "张三",
		"email":   "zhangsan@example.com",
		"subject": "VPN服务咨询",
		"message": "您好，我对贵公司的VPN服务很感兴趣，希望了解更多详细信息。",
		"locale":  "zh",
	}), "203.0.113.1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Your message has been sent successfully. We will get back to you soon.", env.Message)
	assert.Empty(t, env.Error)

	require.Len(t, f.deliverer.subs, 1)
	assert.Equal(t, "张三", f.deliverer.subs[0].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ContactSubmissions.WithLabelValues(metrics.ResultAccepted)))
	assert.Contains(t, f.logs.String(), "[AUDIT] contact_submitted")
}

func TestSubmitJapaneseSubmission(t *testing.T) {
	f := newFixture(t)

	rec, env := f.post(t, mustJSON(t, map[string]string{
		"name":    "田中太郎",
		"email":   "tanaka@example.jp",
		"subject": "サービスについて質問があります",
		"message": "こんにちは、御社のVPNサービスに興味があります。詳細を教えていただけますか？",
		"locale":  "ja",
	}), "203.0.113.1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestSubmitNameTooShort(t *testing.T) {
	f := newFixture(t)

	rec, env := f.post(t, mustJSON(t, with(validRaw(), "name", "A")), "203.0.113.1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "name")
	assert.Contains(t, env.Error, "姓名至少2个字符")
	assert.Empty(t, f.deliverer.subs)
}

func TestSubmitEachFieldViolationMentionsField(t *testing.T) {
	cases := map[string]any{
		"name":    strings.Repeat("n", 51),
		"email":   "invalid",
		"subject": "Hi",
		"message": "Short",
		"locale":  "xx",
	}

	for field, value := range cases {
		t.Run(field, func(t *testing.T) {
			f := newFixture(t)
			rec, env := f.post(t, mustJSON(t, with(validRaw(), field, value)), "203.0.113.1")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.True(t, strings.HasPrefix(env.Error, field+": "), env.Error)
		})
	}
}

func TestSubmitMultipleViolations(t *testing.T) {
	f := newFixture(t)

	rec, env := f.post(t, `{"name":"A","email":"invalid","subject":"Hi","message":"Short","locale":"xx"}`, "203.0.113.1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	for _, field := range []string{FieldName, FieldEmail, FieldSubject, FieldMessage, FieldLocale} {
		assert.Equal(t, 1, strings.Count(env.Error, field+": "), field)
	}
	assert.True(t, strings.HasPrefix(env.Error, FieldName+": "), env.Error)
	assert.True(t, strings.HasSuffix(env.Error, "locale: Invalid enum value. Expected 'zh' | 'en' | 'ja', received 'xx'"), env.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ContactSubmissions.WithLabelValues(metrics.ResultInvalid)))
}

func TestSubmitRejectedDataIsNotLogged(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.post(t, mustJSON(t, with(with(validRaw(), "name", "Zebulon Quux"), "message", "tiny")), "203.0.113.1")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, f.logs.String(), "[AUDIT] contact_rejected")
	assert.NotContains(t, f.logs.String(), "Zebulon Quux")
}

func TestSubmitWhitespaceDoesNotAffectOutcome(t *testing.T) {
	f := newFixture(t)

	padded := RawSubmission{
		"name":    "  John Doe  ",
		"email":   "  john@example.com ",
		"subject": "   Test Subject",
		"message": "This is a test message that is long enough.\n\n",
		"locale":  "en",
	}

	rec, _ := f.post(t, mustJSON(t, padded), "203.0.113.1")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.post(t, validBody(t), "203.0.113.1")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.deliverer.subs, 2)
	assert.Equal(t, f.deliverer.subs[1], f.deliverer.subs[0])

	// 去除空白後過短的欄位仍被拒絕
	rec, env := f.post(t, mustJSON(t, with(validRaw(), "subject", "   Hi   ")), "203.0.113.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "subject")
}

func TestSubmitMalformedBody(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{"this is not json", `["array"]`, `null`, `{"name":`} {
		rec, env := f.post(t, body, "203.0.113.1")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, env.Success)
		assert.Equal(t, "Invalid request body", env.Error)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.ContactSubmissions.WithLabelValues(metrics.ResultMalformed)))
}

func TestSubmitOversizedBodyIsMalformed(t *testing.T) {
	f := newFixture(t)

	raw := with(validRaw(), "message", strings.Repeat("m", 8<<10))
	rec, env := f.post(t, mustJSON(t, raw), "203.0.113.1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env.Error)
}

func TestSubmitRateLimitedPerWindow(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		rec, _ := f.post(t, validBody(t), "198.51.100.9")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	f.clock.Advance(30 * time.Second)
	rec, env := f.post(t, validBody(t), "198.51.100.9")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests. Please try again later.", env.Error)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	// 限流在解析內容之前判斷
	rec, _ = f.post(t, "not json", "198.51.100.9")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// 窗口結束後重新計數
	f.clock.Advance(31 * time.Second)
	rec, env = f.post(t, validBody(t), "198.51.100.9")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	assert.Len(t, f.deliverer.subs, 6)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ContactSubmissions.WithLabelValues(metrics.ResultRateLimited)))
}

func TestSubmitInvalidRequestsConsumeQuota(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		rec, _ := f.post(t, "garbage", "198.51.100.10")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec, _ := f.post(t, validBody(t), "198.51.100.10")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSubmitDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.deliverer.err = errors.New("smtp: 421 service not available")

	rec, env := f.post(t, validBody(t), "203.0.113.1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "An unexpected error occurred. Please try again later.", env.Error)
	assert.NotContains(t, rec.Body.String(), "smtp")
	assert.Contains(t, f.logs.String(), "421 service not available")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ContactSubmissions.WithLabelValues(metrics.ResultError)))
}

func TestSubmitDeliveryPanic(t *testing.T) {
	f := newFixture(t)
	f.deliverer.pan = true

	rec, env := f.post(t, validBody(t), "203.0.113.1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An unexpected error occurred. Please try again later.", env.Error)
}

func TestLogDelivererHonoursContext(t *testing.T) {
	defer logger.SetOutput(&bytes.Buffer{})()
	d := &LogDeliverer{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Deliver(ctx, &Submission{Subject: "Test Subject", Locale: "en"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogDelivererWaitsDelay(t *testing.T) {
	var logs bytes.Buffer
	defer logger.SetOutput(&logs)()
	d := &LogDeliverer{Delay: 20 * time.Millisecond}

	start := time.Now()
	err := d.Deliver(context.Background(), &Submission{Subject: "Test Subject", Locale: "en"})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Contains(t, logs.String(), "Contact submission delivered")
}
