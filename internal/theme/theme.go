// Package theme: 화면 테마 선호값 저장
package theme

import (
	"net/http"
	"strings"
	"time"
)

// Theme: 테마 선호값
type Theme string

const (
	Light  Theme = "light"
	Dark   Theme = "dark"
	System Theme = "system"
)

// CookieName: 테마 쿠키 이름
const CookieName = "theme"

const cookieMaxAge = 365 * 24 * time.Hour

// Default: 저장값이 없을 때의 테마
const Default = System

// Parse: 문자열을 Theme 으로 변환합니다. 허용 집합 밖이면 false.
func Parse(raw string) (Theme, bool) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(raw))); t {
	case Light, Dark, System:
		return t, true
	default:
		return "", false
	}
}

// FromRequest: theme 쿠키를 읽습니다. 없거나 잘못된 값이면 Default.
func FromRequest(r *http.Request) Theme {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Default
	}
	if t, ok := Parse(cookie.Value); ok {
		return t
	}
	return Default
}

// Persist: theme 쿠키를 기록합니다.
func Persist(w http.ResponseWriter, t Theme, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(t),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
