package middleware

import (
	"fmt"

	"cyborg-vpn/internal/httputil"

	"github.com/gin-gonic/gin"
)

// Recovery 將 panic 轉為不含內部細節的 500 回應
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		httputil.InternalServerError(c, fmt.Errorf("panic: %v", recovered))
	})
}
