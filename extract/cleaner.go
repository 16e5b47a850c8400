// Package extract turns source documents into per-page searchable text
// and runs the resumable batch pipeline that persists it.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// HTML/XML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

	// HTML entities
	htmlEntityRegex = regexp.MustCompile(`&[a-zA-Z0-9#]*;`)

	// CSS/JavaScript blocks (separate patterns since Go doesn't support backreferences)
	cssRegex = regexp.MustCompile(`(?s)<style[^>]*>.*?</style>`)
	jsRegex  = regexp.MustCompile(`(?s)<script[^>]*>.*?</script>`)

	// Control characters and excessive whitespace
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// NormalizeText prepares extracted text for matching: Unicode NFC,
// control characters stripped, whitespace runs collapsed to single
// spaces. Word boundaries survive so substring matching and snippet
// windows line up with what the user typed.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = controlCharRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripMarkup removes script/style blocks, tags and entities from HTML
// or XML content, leaving plain text.
func stripMarkup(content string) string {
	content = cssRegex.ReplaceAllString(content, "")
	content = jsRegex.ReplaceAllString(content, "")
	content = htmlTagRegex.ReplaceAllString(content, " ")
	content = htmlEntityRegex.ReplaceAllStringFunc(content, func(entity string) string {
		switch entity {
		case "&amp;":
			return "&"
		case "&lt;":
			return "<"
		case "&gt;":
			return ">"
		case "&quot;":
			return "\""
		case "&apos;":
			return "'"
		case "&nbsp;":
			return " "
		default:
			return " "
		}
	})
	return content
}
