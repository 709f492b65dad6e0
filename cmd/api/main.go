package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyborg-vpn/internal/contact"
	"cyborg-vpn/internal/i18n"
	"cyborg-vpn/internal/platform/config"
	"cyborg-vpn/internal/platform/logger"
	"cyborg-vpn/internal/platform/metrics"
	"cyborg-vpn/internal/platform/server"
	"cyborg-vpn/internal/security/audit"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := mainNoExit(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// mainNoExit 分離主要邏輯以避免 exitAfterDefer 問題，確保 defer 函數正常執行.
func mainNoExit() error {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	envErr := godotenv.Load(envFile)

	if env := os.Getenv("ENV"); env != "" {
		config.SetEnv(env)
	}

	// 載入配置（日誌輪轉參數來自配置）.
	if err := config.Load(); err != nil {
		return err
	}
	cfg := config.Get()

	// 初始化日誌.
	if err := logger.InitLogger(); err != nil {
		return err
	}
	defer logger.CloseLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if envErr != nil {
		logger.Info(ctx, "no .env file found, using system environment variables")
	}
	logger.Info(ctx, "正在啟動 Cyborg VPN 網站...", logger.WithDetails(map[string]interface{}{
		"env":        config.GetEnv(),
		"addr":       config.GetServerAddr(),
		"version":    cfg.App.Version,
		"rate_limit": cfg.RateLimitBackend(),
	}))

	if !config.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 建立限流後端.
	backend, err := server.NewRateLimitBackend(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "限流後端初始化失敗", logger.WithDetails(map[string]interface{}{"error": err.Error()}))
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Errorf(ctx, "關閉限流後端失敗: %v", err)
		}
	}()

	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return err
	}

	router, err := server.Router(server.Deps{
		Config:    cfg,
		Store:     backend.Store,
		Ping:      backend.Ping,
		Catalog:   catalog,
		Metrics:   metrics.New(),
		Audit:     audit.NewAuditService(cfg.Security.Audit.Enabled),
		Deliverer: &contact.LogDeliverer{Delay: time.Duration(cfg.Limits.Contact.DeliveryDelayMS) * time.Millisecond},
	})
	if err != nil {
		return err
	}

	return server.Start(ctx, cfg, router)
}
