package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed messages/*.json
var messageFS embed.FS

// Catalog 各語系的翻譯字串，鍵為 "namespace.key"
type Catalog struct {
	messages map[Locale]map[string]string
}

// LoadCatalog 讀取內嵌的翻譯檔
func LoadCatalog() (*Catalog, error) {
	c := &Catalog{messages: make(map[Locale]map[string]string, len(Locales))}

	for _, l := range Locales {
		raw, err := messageFS.ReadFile("messages/" + string(l) + ".json")
		if err != nil {
			return nil, fmt.Errorf("read messages for %s: %w", l, err)
		}

		var nested map[string]map[string]string
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, fmt.Errorf("parse messages for %s: %w", l, err)
		}

		flat := make(map[string]string)
		for ns, entries := range nested {
			for k, v := range entries {
				flat[ns+"."+k] = v
			}
		}
		c.messages[l] = flat
	}

	return c, nil
}

// T 取得翻譯，找不到時回退預設語系，再找不到則回傳鍵本身
func (c *Catalog) T(l Locale, key string) string {
	if v, ok := c.messages[l][key]; ok {
		return v
	}
	if v, ok := c.messages[Default][key]; ok {
		return v
	}
	return key
}

// Namespace 取得某語系某命名空間下的所有字串（不含前綴）
func (c *Catalog) Namespace(l Locale, ns string) map[string]string {
	out := make(map[string]string)
	prefix := ns + "."
	for k, v := range c.messages[l] {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out
}
