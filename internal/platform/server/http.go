package server

import (
	"fmt"
	"net/http"
	"strings"

	"cyborg-vpn/internal/contact"
	"cyborg-vpn/internal/i18n"
	"cyborg-vpn/internal/platform/config"
	"cyborg-vpn/internal/platform/health"
	"cyborg-vpn/internal/platform/metrics"
	"cyborg-vpn/internal/platform/middleware"
	"cyborg-vpn/internal/ratelimit"
	"cyborg-vpn/internal/security/audit"
	"cyborg-vpn/internal/site"

	"github.com/gin-gonic/gin"
)

// 不需要語系前綴的路徑
var unlocalizedPrefixes = []string{"/api", "/health", "/metrics", "/static"}

// Deps 路由所需的依賴
type Deps struct {
	Config    *config.Config
	Store     ratelimit.Store
	Ping      health.PingFunc
	Catalog   *i18n.Catalog
	Metrics   *metrics.Metrics
	Audit     *audit.AuditService
	Deliverer contact.Deliverer
}

// securityHeadersMiddleware 添加安全標頭
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止點擊劫持
		c.Header("X-Frame-Options", "DENY")

		// 防止 MIME 類型嗅探
		c.Header("X-Content-Type-Options", "nosniff")

		// 內容安全策略
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'; connect-src 'self'; frame-ancestors 'none';")

		// 推薦政策
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// 權限政策
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		c.Next()
	}
}

// corsMiddleware 只允許 site.allowed_origins 中的來源
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400") // 預檢請求緩存 24 小時

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Router 設定路由
func Router(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("message catalog is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewAuditService(cfg.Security.Audit.Enabled)
	}

	siteHandler, err := site.NewHandler(deps.Catalog, cfg.Site.BaseURL)
	if err != nil {
		return nil, err
	}

	contactOpts := []contact.Option{
		contact.WithAudit(deps.Audit),
		contact.WithMetrics(deps.Metrics),
	}
	if deps.Deliverer != nil {
		contactOpts = append(contactOpts, contact.WithDeliverer(deps.Deliverer))
	}
	contactHandler := contact.NewHandler(contactOpts...)

	r := gin.New()

	r.Use(middleware.Recovery())
	// 添加請求 ID 中間件（最優先）
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.AccessLog(deps.Metrics))
	r.Use(corsMiddleware(cfg.Site.AllowedOrigins))
	r.Use(securityHeadersMiddleware())
	// 添加請求元數據中間件（提取客戶端識別碼、User-Agent）
	r.Use(middleware.RequestMetadataMiddleware())
	// 頁面路徑一律帶語系前綴
	r.Use(i18n.Middleware(unlocalizedPrefixes...))

	healthHandler := health.NewHealthHandler(cfg.App.Name, deps.Store.Name(), deps.Ping)
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	r.StaticFS("/static", site.Static())

	api := r.Group("/api")
	api.GET("/locales", siteHandler.Locales)

	// 先限流，再檢查內容大小與解析
	var contactChain []gin.HandlerFunc
	if cfg.Limits.RateLimiting.Enabled {
		limiter := middleware.NewRateLimiter(deps.Store, deps.Metrics, deps.Audit)
		contactChain = append(contactChain, limiter.Middleware())
	}
	contactChain = append(contactChain,
		middleware.RequestSizeLimiter(cfg.Limits.Request.MaxBodySize),
		contactHandler.Submit,
	)
	api.POST("/contact", contactChain...)

	// 實際由 i18n.Middleware 依 cookie 與 Accept-Language 轉址
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/"+i18n.Default.String())
	})
	r.GET("/:locale", siteHandler.Page)

	return r, nil
}
