package normalize

import (
	"regexp"
	"strings"
)

var spanOpenTag = regexp.MustCompile(`<span(?:\s[^>]*)?>`)

// Sanitize вырезает известные инлайн-теги из примечаний перевозчика.
// Это не HTML-парсер: неизвестные теги и вложенность не трогаем.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ReplaceAll(text, "</a>", "")

	for {
		start := strings.Index(s, "<a ")
		if start == -1 {
			break
		}
		end := strings.IndexByte(s[start:], '>')
		if end == -1 {
			break
		}
		s = s[:start] + s[start+end+1:]
	}

	s = strings.ReplaceAll(s, "<b>", "")
	s = strings.ReplaceAll(s, "</b>", "")
	s = spanOpenTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "</span>", "")

	return strings.TrimSpace(s)
}
