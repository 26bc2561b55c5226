// Package i18n: 로케일별 UI 사전 로딩과 요청 로케일 판별
package i18n

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionary: 한 로케일의 중첩 키-문자열 사전. 로딩 후 불변이다.
type Dictionary struct {
	locale string
	root   map[string]any
}

// ParseDictionary: YAML 문서를 사전으로 변환합니다. 빈 문서는 빈 사전입니다.
func ParseDictionary(locale string, content []byte) (*Dictionary, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal %s dictionary: %w", locale, err)
	}
	if raw == nil {
		return &Dictionary{locale: locale, root: map[string]any{}}, nil
	}

	root, ok := normalizeYAMLValue(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected %s dictionary root type: %T", locale, raw)
	}
	return &Dictionary{locale: locale, root: root}, nil
}

// Locale: 사전 로케일 코드
func (d *Dictionary) Locale() string {
	if d == nil {
		return ""
	}
	return d.locale
}

// Entries: JSON 응답용 원본 트리. 호출자는 수정하지 않아야 한다.
func (d *Dictionary) Entries() map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d.root
}

// Lookup: 점 경로 키를 조회합니다. 찾지 못하면 키 자체를 반환합니다.
// 잎이 아닌 노드는 찾지 못한 것으로 본다. 문자열이 아닌 잎 값은 fmt.Sprint 로 변환하고,
// {name} 자리표시자는 params 로 치환합니다.
func (d *Dictionary) Lookup(key string, params ...Param) string {
	if d == nil || strings.TrimSpace(key) == "" {
		return key
	}

	value, ok := resolveDottedKey(d.root, key)
	if !ok || !isLeaf(value) {
		return key
	}

	template, ok := value.(string)
	if !ok {
		return fmt.Sprint(value)
	}

	out := template
	for _, param := range params {
		out = strings.ReplaceAll(out, "{"+param.Key+"}", fmt.Sprint(param.Value))
	}
	return out
}

// Has: 키가 잎(leaf) 값으로 존재하는지 확인합니다.
func (d *Dictionary) Has(key string) bool {
	if d == nil {
		return false
	}
	v, ok := resolveDottedKey(d.root, key)
	return ok && isLeaf(v)
}

func isLeaf(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

// Param: 자리표시자 치환 값
type Param struct {
	Key   string
	Value any
}

// P: Param 생성 헬퍼
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}

func resolveDottedKey(root map[string]any, key string) (any, bool) {
	var current any = root
	for part := range strings.SplitSeq(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := m[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func normalizeYAMLValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, vv := range typed {
			out[k] = normalizeYAMLValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, vv := range typed {
			out[fmt.Sprint(k)] = normalizeYAMLValue(vv)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, vv := range typed {
			out = append(out, normalizeYAMLValue(vv))
		}
		return out
	default:
		return v
	}
}
