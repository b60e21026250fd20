package summary

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// contentExcerpt strips a story's HTML content down to a plain-text excerpt
// of at most maxChars characters.
func contentExcerpt(content string, maxChars int) string {
	if content == "" {
		return ""
	}

	text := content
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		text = doc.Text()
	}
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))

	if len(text) > maxChars {
		// Back up to a rune boundary so a multi-byte character is never
		// split mid-sequence.
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}
