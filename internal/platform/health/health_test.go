package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cyborg-vpn/internal/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(t *testing.T, h *Handler) map[string]interface{} {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.HealthCheck)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthCheckMemoryBackend(t *testing.T) {
	body := check(t, NewHealthHandler("cyborg-vpn", "memory", nil))

	assert.Equal(t, "healthy", body["status"])
	rl := body["rate_limit"].(map[string]interface{})
	assert.Equal(t, "memory", rl["backend"])
	assert.Equal(t, "healthy", rl["status"])
}

func TestHealthCheckBackendDown(t *testing.T) {
	defer logger.SetOutput(&bytes.Buffer{})()

	body := check(t, NewHealthHandler("cyborg-vpn", "redis", func(context.Context) error {
		return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	}))

	assert.Equal(t, "degraded", body["status"])
	rl := body["rate_limit"].(map[string]interface{})
	assert.Equal(t, "unhealthy", rl["status"])
	assert.Contains(t, rl["error"], "connection refused")
}
