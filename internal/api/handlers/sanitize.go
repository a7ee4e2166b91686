package handlers

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes all HTML tags and attributes.
var strictPolicy = bluemonday.StrictPolicy()

// maxSanitizePasses bounds how many layers of entity encoding are peeled off.
const maxSanitizePasses = 4

// sanitizeMessage strips markup and non-printable characters from chat input
// before it is stored or sent to the model. Entities are decoded before the
// policy runs, so encoded tags are stripped like literal ones, and the pass
// repeats until the text is stable. Plain text such as "Tom & Jerry" comes
// out unescaped.
func sanitizeMessage(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)

	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(strictPolicy.Sanitize(html.UnescapeString(s)))
		if next == s {
			break
		}
		s = next
	}
	if strings.ContainsAny(s, "<>") && strictPolicy.Sanitize(s) != html.EscapeString(s) {
		// Still carries markup after the pass budget: keep the escaped form.
		s = strictPolicy.Sanitize(s)
	}
	return strings.TrimSpace(s)
}
