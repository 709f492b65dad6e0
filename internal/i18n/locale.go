// Package i18n 網站支援的語系、語系標籤與 Accept-Language 協商。
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale 網站語系
type Locale string

const (
	Chinese  Locale = "zh"
	English  Locale = "en"
	Japanese Locale = "ja"
)

// Default 預設語系
const Default = Chinese

// CookieName 記住使用者語系的 cookie
const CookieName = "NEXT_LOCALE"

// Locales 支援的語系，順序即語言切換器的顯示順序
var Locales = []Locale{Chinese, English, Japanese}

var labels = map[Locale]string{
	Chinese:  "中文",
	English:  "English",
	Japanese: "日本語",
}

// 與 Locales 一一對應；第一個為無法匹配時的後備語系
var matcher = language.NewMatcher([]language.Tag{
	language.Chinese,
	language.English,
	language.Japanese,
})

// Label 語系顯示名稱
func (l Locale) Label() string {
	return labels[l]
}

// String 實作 fmt.Stringer
func (l Locale) String() string {
	return string(l)
}

// Parse 解析語系字串，只接受完全相符的 zh / en / ja
func Parse(s string) (Locale, bool) {
	l := Locale(s)
	if _, ok := labels[l]; ok {
		return l, true
	}
	return "", false
}

// IsSupported 是否為支援的語系
func IsSupported(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Negotiate 依 Accept-Language 選擇最接近的語系
func Negotiate(acceptLanguage string) Locale {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}

	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default
	}
	return Locales[idx]
}

// Resolve 依序使用 cookie、Accept-Language，最後回退預設語系
func Resolve(cookie, acceptLanguage string) Locale {
	if l, ok := Parse(cookie); ok {
		return l
	}
	return Negotiate(acceptLanguage)
}
