// Package content: 기사 본문 품질 검사
package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// 기본 품질 기준
const (
	DefaultMinWords = 100
	DefaultMinChars = 500
)

// Thresholds: 최소 단어/문자 수
type Thresholds struct {
	MinWords int
	MinChars int
}

// DefaultThresholds: 기본 기준을 반환합니다.
func DefaultThresholds() Thresholds {
	return Thresholds{MinWords: DefaultMinWords, MinChars: DefaultMinChars}
}

// Result: 품질 검사 결과
type Result struct {
	WordCount    int      `json:"word_count"`
	CharCount    int      `json:"char_count"`
	IsValid      bool     `json:"is_valid"`
	Issues       []string `json:"issues"`
	Placeholders []string `json:"placeholders"`
}

type placeholderPattern struct {
	label string
	re    *regexp.Regexp
}

var placeholderPatterns = []placeholderPattern{
	{label: "lorem ipsum", re: regexp.MustCompile(`(?i)\blorem\s+ipsum\b`)},
	{label: "coming soon", re: regexp.MustCompile(`(?i)\bcoming\s+soon\b`)},
	{label: "placeholder", re: regexp.MustCompile(`(?i)\bplaceholder\b`)},
	{label: "TBD", re: regexp.MustCompile(`\bTBD\b|\[\s*(?i:tbd)\s*\]`)},
	{label: "TODO", re: regexp.MustCompile(`\bTODO\b|\[\s*(?i:todo)\s*\]`)},
	{label: "insert ... here", re: regexp.MustCompile(`(?i)\binsert\b[^.\n]{0,40}?\bhere\b`)},
	{label: "under construction", re: regexp.MustCompile(`(?i)\bunder\s+construction\b`)},
	{label: "content goes here", re: regexp.MustCompile(`(?i)\b(?:content|text)\s+goes\s+here\b`)},
	{label: "[...]", re: regexp.MustCompile(`\[\s*(?:\.\.\.|…)\s*\]`)},
}

const droppedElements = "script, style, noscript, template"

// Validate: 본문을 정리하고 기준을 적용합니다. 실패하지 않습니다.
func Validate(raw string, th Thresholds) Result {
	text := CleanText(raw)

	res := Result{
		WordCount:    len(strings.Fields(text)),
		CharCount:    utf8.RuneCountInString(text),
		Issues:       []string{},
		Placeholders: []string{},
	}

	if text == "" {
		res.Issues = append(res.Issues, "Content is empty")
	}
	if res.WordCount < th.MinWords {
		res.Issues = append(res.Issues, fmt.Sprintf("Content has %d words, minimum is %d", res.WordCount, th.MinWords))
	}
	if res.CharCount < th.MinChars {
		res.Issues = append(res.Issues, fmt.Sprintf("Content has %d characters, minimum is %d", res.CharCount, th.MinChars))
	}
	for _, p := range placeholderPatterns {
		if p.re.MatchString(text) {
			res.Placeholders = append(res.Placeholders, p.label)
			res.Issues = append(res.Issues, "Content contains placeholder text: "+p.label)
		}
	}

	res.IsValid = len(res.Issues) == 0
	return res
}

// CleanText: HTML 태그를 제거하고 엔티티를 디코딩한 뒤 공백을 하나로 합칩니다.
func CleanText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		// html 파서는 사실상 실패하지 않지만, 실패 시 원문 공백만 정리
		return strings.Join(strings.Fields(raw), " ")
	}
	doc.Find(droppedElements).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		collectText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// collectText: 블록 경계에서 단어가 붙지 않도록 텍스트 노드마다 공백을 넣는다.
func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}
