// Package dates: 기사 표시 날짜 선택 규칙을 구현합니다.
package dates

import (
	"strings"
	"time"
)

// MinValidYear: 이보다 이른 연도는 백엔드 기본값(0001, 1970 등)으로 간주한다.
const MinValidYear = 2020

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse: 허용 레이아웃 중 하나로 해석합니다.
func Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsValid: 비어있지 않고, "null"/"undefined" 가 아니며, 파싱 가능하고 연도가 MinValidYear 이상인지 검사합니다.
func IsValid(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" || s == "null" || s == "undefined" {
		return false
	}
	t, ok := Parse(s)
	return ok && t.Year() >= MinValidYear
}

// BestDate: 표시할 날짜 문자열을 고릅니다.
// 게시된 글의 published 가 무효이고 created 가 비어있지 않으면 created 를 그대로 쓴다.
// 그 외에는 published, updated, created 순으로 첫 유효값, 모두 무효면 now(RFC3339).
func BestDate(published, updated, created string, isPublished bool, now time.Time) string {
	if isPublished && !IsValid(published) && strings.TrimSpace(created) != "" {
		return created
	}
	for _, candidate := range []string{published, updated, created} {
		if IsValid(candidate) {
			return candidate
		}
	}
	return now.UTC().Format(time.RFC3339)
}
