// Package site 依語系輸出落地頁與語系清單。
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"cyborg-vpn/internal/httputil"
	"cyborg-vpn/internal/i18n"
	"cyborg-vpn/internal/platform/logger"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Sections 頁面區塊，順序即導覽列順序
var Sections = []string{"hero", "features", "about", "testimonials", "pricing", "faq", "contact"}

// Alternate hreflang 替代連結
type Alternate struct {
	HrefLang string
	Href     string
}

type navItem struct {
	ID    string
	Label string
}

type localeLink struct {
	Code    string
	Label   string
	Href    string
	Current bool
}

type pageData struct {
	Lang        string
	Title       string
	Description string
	Canonical   string
	Alternates  []Alternate
	Nav         []navItem
	Locales     []localeLink
	T           map[string]string
}

// Handler 落地頁處理器
type Handler struct {
	catalog *i18n.Catalog
	baseURL string
	tmpl    *template.Template
}

// NewHandler 解析內嵌模板
func NewHandler(catalog *i18n.Catalog, baseURL string) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse site templates: %w", err)
	}
	return &Handler{
		catalog: catalog,
		baseURL: strings.TrimRight(baseURL, "/"),
		tmpl:    tmpl,
	}, nil
}

// Static 內嵌的前端資源
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Alternates 各語系的 hreflang 連結，x-default 指向預設語系
func Alternates(baseURL string) []Alternate {
	baseURL = strings.TrimRight(baseURL, "/")
	out := make([]Alternate, 0, len(i18n.Locales)+1)
	for _, l := range i18n.Locales {
		out = append(out, Alternate{HrefLang: l.String(), Href: baseURL + "/" + l.String()})
	}
	return append(out, Alternate{HrefLang: "x-default", Href: baseURL + "/" + i18n.Default.String()})
}

// Page GET /:locale
func (h *Handler) Page(c *gin.Context) {
	l, ok := i18n.Parse(c.Param("locale"))
	if !ok {
		httputil.NotFoundError(c, "")
		return
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "page.html", h.pageData(l)); err != nil {
		logger.Error(c.Request.Context(), fmt.Sprintf("render landing page: %v", err),
			logger.WithLocale(l.String()))
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	c.Header("Content-Language", l.String())
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// Locales GET /api/locales
func (h *Handler) Locales(c *gin.Context) {
	items := make([]gin.H, 0, len(i18n.Locales))
	for _, l := range i18n.Locales {
		items = append(items, gin.H{"code": l, "label": l.Label()})
	}
	c.JSON(http.StatusOK, gin.H{
		"default": i18n.Default,
		"locales": items,
	})
}

func (h *Handler) pageData(l i18n.Locale) pageData {
	nav := make([]navItem, 0, len(Sections))
	for _, s := range Sections {
		nav = append(nav, navItem{ID: s, Label: h.catalog.T(l, "nav."+s)})
	}

	links := make([]localeLink, 0, len(i18n.Locales))
	for _, other := range i18n.Locales {
		links = append(links, localeLink{
			Code:    other.String(),
			Label:   other.Label(),
			Href:    "/" + other.String(),
			Current: other == l,
		})
	}

	t := make(map[string]string)
	for _, ns := range []string{"common", "hero", "contact"} {
		for k, v := range h.catalog.Namespace(l, ns) {
			t[ns+"."+k] = v
		}
	}

	return pageData{
		Lang:        l.String(),
		Title:       h.catalog.T(l, "common.siteTitle"),
		Description: h.catalog.T(l, "common.siteDescription"),
		Canonical:   h.baseURL + "/" + l.String(),
		Alternates:  Alternates(h.baseURL),
		Nav:         nav,
		Locales:     links,
		T:           t,
	}
}
