package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 聯絡表單處理結果
const (
	ResultAccepted    = "accepted"
	ResultInvalid     = "invalid"
	ResultMalformed   = "malformed"
	ResultRateLimited = "rate_limited"
	ResultError       = "error"
)

// 限流判定
const (
	DecisionAllowed  = "allowed"
	DecisionRejected = "rejected"
	DecisionError    = "error"
)

// 延遲分桶（毫秒），聯絡表單含約 500ms 的寄送延遲
var latencyBuckets = []float64{
	5, 10, 25,
	50, 100, 250,
	500, 750, 1000,
	2500, 5000, 10000,
}

// Metrics Prometheus 指標；nil 時所有記錄方法皆為 no-op
type Metrics struct {
	registry *prometheus.Registry

	ContactSubmissions *prometheus.CounterVec
	RateLimitDecisions *prometheus.CounterVec
	RequestLatency     *prometheus.HistogramVec
}

// New 創建獨立 registry 的指標集合
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		ContactSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_submissions_total",
				Help: "Contact form submissions by result",
			},
			[]string{"result"},
		),
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimit_decisions_total",
				Help: "Rate limiter decisions by backend",
			},
			[]string{"backend", "decision"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_ms",
				Help:    "HTTP request latency in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveContact 記錄聯絡表單結果
func (m *Metrics) ObserveContact(result string) {
	if m == nil {
		return
	}
	m.ContactSubmissions.WithLabelValues(result).Inc()
}

// ObserveRateLimit 記錄限流判定
func (m *Metrics) ObserveRateLimit(backend, decision string) {
	if m == nil {
		return
	}
	m.RateLimitDecisions.WithLabelValues(backend, decision).Inc()
}

// ObserveRequest 記錄請求延遲
func (m *Metrics) ObserveRequest(method, route string, status int, latencyMS float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(latencyMS)
}

// Registry 供測試讀取
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
