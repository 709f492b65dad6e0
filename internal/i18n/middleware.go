package i18n

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey gin.Context 中保存目前語系的鍵
const ContextKey = "locale"

// 語系 cookie 保留一年
const cookieMaxAge = 365 * 24 * 60 * 60

// Middleware 確保頁面路徑帶有語系前綴：
// 已帶前綴時記錄語系並更新 cookie，否則 307 轉址到解析出的語系下的同一路徑。
// skip 中的前綴（例如 /api）不處理。
func Middleware(skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range skip {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				c.Next()
				return
			}
		}

		cookie, _ := c.Cookie(CookieName)

		if l, ok := Parse(firstSegment(path)); ok {
			c.Set(ContextKey, l)
			if cookie != l.String() {
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(CookieName, l.String(), cookieMaxAge, "/", "", false, false)
			}
			c.Next()
			return
		}

		l := Resolve(cookie, c.GetHeader("Accept-Language"))
		target := "/" + l.String()
		if path != "/" {
			target += path
		}
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}

		c.Redirect(http.StatusTemporaryRedirect, target)
		c.Abort()
	}
}

// FromContext 取得 Middleware 記錄的語系，沒有時回傳預設語系
func FromContext(c *gin.Context) Locale {
	if v, ok := c.Get(ContextKey); ok {
		if l, ok := v.(Locale); ok {
			return l
		}
	}
	return Default
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	seg, _, _ := strings.Cut(path, "/")
	return seg
}
