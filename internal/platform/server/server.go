package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"cyborg-vpn/internal/platform/config"
	"cyborg-vpn/internal/platform/logger"
)

const shutdownTimeout = 30 * time.Second

// NewHTTPServer 依配置建立 http.Server
func NewHTTPServer(cfg *config.Config, handler http.Handler) (*http.Server, error) {
	timeout := time.Duration(cfg.Server.Timeout) * time.Second

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.Server.UseHTTPS {
		tlsConfig, err := LoadTLSConfig(cfg.Server)
		if err != nil {
			return nil, err
		}
		srv.TLSConfig = tlsConfig
	}

	return srv, nil
}

// Start 啟動伺服器，直到 ctx 結束後優雅關閉.
func Start(ctx context.Context, cfg *config.Config, handler http.Handler) error {
	srv, err := NewHTTPServer(cfg, handler)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, fmt.Sprintf("伺服器正在監聽: %s", srv.Addr),
			logger.WithAction("listen"),
			logger.WithDetails(map[string]interface{}{"https": srv.TLSConfig != nil}))

		var err error
		if srv.TLSConfig != nil {
			// 憑證已載入 TLSConfig
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("伺服器啟動失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "收到關閉信號，正在優雅關閉伺服器...", logger.WithAction("shutdown"))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("伺服器關閉失敗: %w", err)
	}

	logger.Info(context.Background(), "伺服器已優雅關閉", logger.WithAction("shutdown"))
	return nil
}
