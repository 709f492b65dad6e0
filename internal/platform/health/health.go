package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"cyborg-vpn/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	// 健康狀態常數.
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusWarning   = "warning"
	statusDegraded  = "degraded"

	// 記憶體相關常數.
	memoryMB        = 1024 * 1024
	memoryThreshold = 1024 // 1GB

	// 超時常數.
	backendTimeout = 5 * time.Second
)

// PingFunc 檢查限流後端是否可用；記憶體後端為 nil
type PingFunc func(ctx context.Context) error

// Handler 健康檢查處理器.
type Handler struct {
	appName   string
	backend   string
	ping      PingFunc
	startTime time.Time
}

// NewHealthHandler 創建新的健康檢查處理器.
func NewHealthHandler(appName, backend string, ping PingFunc) *Handler {
	return &Handler{
		appName:   appName,
		backend:   backend,
		ping:      ping,
		startTime: time.Now(),
	}
}

// HealthCheck 健康檢查端點.
func (h *Handler) HealthCheck(c *gin.Context) {
	backendStatus := statusHealthy
	backendError := ""

	if err := h.checkBackend(c.Request.Context()); err != nil {
		backendStatus = statusUnhealthy
		backendError = err.Error()
		logger.Error(c.Request.Context(), fmt.Sprintf("健康檢查 - 限流後端連線失敗: %v", err),
			logger.WithDetails(map[string]interface{}{"backend": h.backend}))
	}

	systemStatus := h.checkSystemResources()

	// 從環境變數讀取版本，沒有則用預設值
	appVersion := os.Getenv("APP_VERSION")
	if appVersion == "" {
		appVersion = "NO_VERSION_SET"
	}

	response := gin.H{
		"status":    statusHealthy,
		"timestamp": time.Now().Unix(),
		"app": gin.H{
			"name":    h.appName,
			"version": appVersion,
		},
		"rate_limit": gin.H{
			"backend": h.backend,
			"status":  backendStatus,
			"error":   backendError,
		},
		"system": gin.H{
			"status":  systemStatus.Status,
			"details": systemStatus.Details,
			"uptime":  time.Since(h.startTime).String(),
		},
	}

	// 限流後端故障時請求仍會放行，因此只標記為 degraded 並回傳 200.
	if backendStatus == statusUnhealthy {
		response["status"] = statusDegraded
	}

	c.JSON(http.StatusOK, response)
}

// SystemStatus 系統狀態.
type SystemStatus struct {
	Status  string                 `json:"status"`
	Details map[string]interface{} `json:"details"`
}

// checkSystemResources 檢查系統資源.
func (h *Handler) checkSystemResources() SystemStatus {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	details := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc":       fmt.Sprintf("%.2f MB", float64(m.Alloc)/memoryMB),
			"total_alloc": fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/memoryMB),
			"sys":         fmt.Sprintf("%.2f MB", float64(m.Sys)/memoryMB),
			"num_gc":      m.NumGC,
		},
		"cpu": gin.H{
			"num_cpu": runtime.NumCPU(),
		},
	}

	// 檢查記憶體使用是否過高（超過 1GB 視為警告）
	status := statusHealthy
	if m.Sys/memoryMB > memoryThreshold {
		status = statusWarning
		details["memory_warning"] = "Memory usage is high"
	}

	return SystemStatus{
		Status:  status,
		Details: details,
	}
}

// checkBackend 檢查限流後端連線.
func (h *Handler) checkBackend(ctx context.Context) error {
	if h.ping == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	return h.ping(ctx)
}
