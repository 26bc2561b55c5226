package i18n

import (
	"net/http"
	"strings"
	"time"
)

// CookieName: 로케일 쿠키 이름
const CookieName = "locale"

// CookieMaxAge: 1년
const CookieMaxAge = 365 * 24 * time.Hour

// Source: 로케일이 결정된 근거
type Source string

const (
	SourcePath    Source = "path"
	SourceQuery   Source = "query"
	SourceCookie  Source = "cookie"
	SourceHeader  Source = "header"
	SourceDefault Source = "default"
)

// Resolution: 요청 로케일 판별 결과
type Resolution struct {
	Locale string `json:"locale"`
	Source Source `json:"source"`
}

// Resolve: 경로 첫 세그먼트, ?locale=, locale 쿠키, Accept-Language, 기본값 순으로 판별합니다.
// 지원하지 않는 값은 건너뛴다.
func (c *Catalog) Resolve(r *http.Request) Resolution {
	if r == nil {
		return Resolution{Locale: c.defaultLocale, Source: SourceDefault}
	}

	if seg := firstPathSegment(r.URL.Path); c.IsSupported(seg) {
		return Resolution{Locale: normalizeCode(seg), Source: SourcePath}
	}

	if q := r.URL.Query().Get("locale"); c.IsSupported(q) {
		return Resolution{Locale: normalizeCode(q), Source: SourceQuery}
	}

	if cookie, err := r.Cookie(CookieName); err == nil && c.IsSupported(cookie.Value) {
		return Resolution{Locale: normalizeCode(cookie.Value), Source: SourceCookie}
	}

	if code, ok := c.MatchAcceptLanguage(r.Header.Get("Accept-Language")); ok {
		return Resolution{Locale: code, Source: SourceHeader}
	}

	return Resolution{Locale: c.defaultLocale, Source: SourceDefault}
}

// NewCookie: 로케일 쿠키를 생성합니다 (path /, SameSite=Lax, 1년).
func NewCookie(locale string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    normalizeCode(locale),
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return ""
	}
	seg, _, _ := strings.Cut(path, "/")
	return seg
}
