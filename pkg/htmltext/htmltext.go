// Package htmltext извлекает читаемый текст из HTML, который производит редактор заметок.
package htmltext

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Ellipsis дописывается к усеченным строкам.
const Ellipsis = "..."

// blockElements отделяются пробелом, чтобы "<p>a</p><p>b</p>" не склеивалось в "ab".
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "pre": {}, "hr": {}, "tr": {}, "td": {}, "th": {},
}

// skippedElements не содержат видимого текста.
var skippedElements = map[string]struct{}{
	"script": {}, "style": {}, "head": {}, "title": {},
}

// ExtractText возвращает текстовое содержимое документа со схлопнутыми пробелами.
// Некорректная разметка не считается ошибкой: токенизатор разбирает то, что может.
func ExtractText(doc string) string {
	if doc == "" {
		return ""
	}

	var (
		b    strings.Builder
		skip int
	)

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF или ошибка разбора: возвращаем накопленный текст.
			return collapseSpaces(b.String())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if _, ok := skippedElements[tag]; ok {
				switch tt {
				case html.StartTagToken:
					skip++
				case html.EndTagToken:
					if skip > 0 {
						skip--
					}
				}
				continue
			}
			if _, ok := blockElements[tag]; ok {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate обрезает s до limit рун и дописывает Ellipsis, если строка была длиннее.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + Ellipsis
}
