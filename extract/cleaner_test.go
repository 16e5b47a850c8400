package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses whitespace runs",
			input:    "emissions\t\ttesting\n\nin   accordance",
			expected: "emissions testing in accordance",
		},
		{
			name:     "strips control characters",
			input:    "report\x00\x01\x02 body\x7f text",
			expected: "report body text",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "   page one   ",
			expected: "page one",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    " \t\n ",
			expected: "",
		},
		{
			name:     "composes decomposed accents",
			input:    "re\u0301sume\u0301",
			expected: "résumé",
		},
		{
			name:     "already composed accents unchanged",
			input:    "résumé",
			expected: "résumé",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes tags",
			input:    "<p>Hello <b>world</b></p>",
			expected: "Hello world",
		},
		{
			name:     "removes style blocks",
			input:    "<style>body { color: red }</style>visible",
			expected: "visible",
		},
		{
			name:     "removes script blocks",
			input:    "<script>alert('x')</script>visible",
			expected: "visible",
		},
		{
			name:     "decodes common entities",
			input:    "a &amp; b &lt;c&gt; &quot;d&quot;",
			expected: `a & b <c> "d"`,
		},
		{
			name:     "unknown entities become spaces",
			input:    "a&copy;b",
			expected: "a b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(stripMarkup(tt.input)))
		})
	}
}
