package i18n

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// KnownLocales: 사전 파일이 포함된 로케일
var KnownLocales = []string{"en", "es", "fr", "it"}

// Catalog: 지원 로케일 집합과 사전들
type Catalog struct {
	supported     []string
	defaultLocale string
	dictionaries  map[string]*Dictionary
	matcher       language.Matcher
	matchCodes    []string // matcher 태그 인덱스 -> 로케일 코드
}

// NewCatalog: 지원 로케일의 내장 사전을 모두 로드합니다.
func NewCatalog(supported []string, defaultLocale string) (*Catalog, error) {
	if len(supported) == 0 {
		return nil, fmt.Errorf("no supported locales")
	}

	c := &Catalog{
		defaultLocale: normalizeCode(defaultLocale),
		dictionaries:  make(map[string]*Dictionary, len(supported)),
	}

	var tags []language.Tag
	for _, code := range supported {
		code = normalizeCode(code)
		if code == "" || slices.Contains(c.supported, code) {
			continue
		}
		content, err := localeFS.ReadFile("locales/" + code + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("no dictionary for locale %q: %w", code, err)
		}
		dict, err := ParseDictionary(code, content)
		if err != nil {
			return nil, err
		}
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", code, err)
		}
		c.supported = append(c.supported, code)
		c.dictionaries[code] = dict
		// 매처의 첫 태그가 fallback 이므로 기본 로케일을 앞에 둔다.
		if code == c.defaultLocale {
			tags = append([]language.Tag{tag}, tags...)
			c.matchCodes = append([]string{code}, c.matchCodes...)
		} else {
			tags = append(tags, tag)
			c.matchCodes = append(c.matchCodes, code)
		}
	}

	if !slices.Contains(c.supported, c.defaultLocale) {
		return nil, fmt.Errorf("default locale %q is not supported", defaultLocale)
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// Supported: 지원 로케일 목록 (복사본)
func (c *Catalog) Supported() []string {
	return slices.Clone(c.supported)
}

// Default: 기본 로케일
func (c *Catalog) Default() string {
	return c.defaultLocale
}

// IsSupported: 지원 로케일 여부
func (c *Catalog) IsSupported(code string) bool {
	_, ok := c.dictionaries[normalizeCode(code)]
	return ok
}

// Dictionary: 로케일 사전을 반환합니다. 미지원 로케일이면 false.
func (c *Catalog) Dictionary(code string) (*Dictionary, bool) {
	d, ok := c.dictionaries[normalizeCode(code)]
	return d, ok
}

// MatchAcceptLanguage: Accept-Language 헤더에서 가장 적합한 지원 로케일을 고릅니다.
// 신뢰도가 없는 일치(No)는 false.
func (c *Catalog) MatchAcceptLanguage(header string) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	prefs, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(prefs) == 0 {
		return "", false
	}
	_, idx, confidence := c.matcher.Match(prefs...)
	if confidence == language.No {
		return "", false
	}
	if idx < 0 || idx >= len(c.matchCodes) {
		return "", false
	}
	return c.matchCodes[idx], true
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
