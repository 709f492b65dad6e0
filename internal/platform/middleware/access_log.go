package middleware

import (
	"fmt"
	"time"

	"cyborg-vpn/internal/platform/logger"
	"cyborg-vpn/internal/platform/metrics"

	"github.com/gin-gonic/gin"
)

// AccessLog 每個請求輸出一筆 GCP httpRequest 格式的日誌並記錄延遲
func AccessLog(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, c.FullPath(), status, float64(latency.Microseconds())/1000)

		log := logger.Info
		switch {
		case status >= 500:
			log = logger.Error
		case status >= 400:
			log = logger.Warning
		}

		log(c.Request.Context(), fmt.Sprintf("%s %s %d", c.Request.Method, c.Request.URL.Path, status),
			logger.WithRequestID(GetRequestID(c)),
			logger.WithLabels(map[string]string{"log_type": "access"}),
			logger.WithHTTPRequest(&logger.HTTPRequest{
				RequestMethod: c.Request.Method,
				RequestURL:    c.Request.URL.RequestURI(),
				RequestSize:   c.Request.ContentLength,
				Status:        status,
				ResponseSize:  int64(c.Writer.Size()),
				UserAgent:     c.Request.UserAgent(),
				RemoteIP:      GetClientIP(c),
				Referer:       c.Request.Referer(),
				Latency:       fmt.Sprintf("%.3fs", latency.Seconds()),
				Protocol:      c.Request.Proto,
			}))
	}
}
