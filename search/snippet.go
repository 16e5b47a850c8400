package search

import (
	"regexp"
	"strings"
)

// contextChars is how much text to keep on each side of the first
// occurrence when building a snippet.
const contextChars = 100

// buildSnippet extracts a bounded window around the first occurrence of
// the needle and wraps every complete occurrence inside the window with
// <mark> tags. The window edges are pushed outward to the nearest space
// so words (and the highlighted span itself) are never split; `...`
// marks truncation.
func buildSnippet(text, lowerText, needle string) string {
	pos := strings.Index(lowerText, needle)
	if pos < 0 {
		// Callers only pass matching pages; fall back to the page head.
		if len(text) > 2*contextChars {
			return text[:2*contextChars] + "..."
		}
		return text
	}

	start := pos - contextChars
	if start < 0 {
		start = 0
	}
	end := pos + len(needle) + contextChars
	if end > len(text) {
		end = len(text)
	}

	// Snap outward to word boundaries. Page text is whitespace
	// normalized, so a single space is the only separator and the
	// resulting indices always sit on rune boundaries.
	for start > 0 && text[start] != ' ' {
		start--
	}
	for end < len(text) && text[end] != ' ' {
		end++
	}

	snippet := strings.TrimSpace(text[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet = snippet + "..."
	}

	return highlight(snippet, needle)
}

// highlight wraps each case-insensitive occurrence of the needle with
// <mark> tags, preserving the original casing of the matched text.
func highlight(text, needle string) string {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(needle))
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		return "<mark>" + match + "</mark>"
	})
}
