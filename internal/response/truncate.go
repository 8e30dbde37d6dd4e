package response

import (
	"fmt"
	"unicode/utf8"
)

const truncationNotice = "\n\n[Output truncated: response exceeded the limit of %d characters (original length: %d). " +
	"Narrow the query: add filters, reduce the scope or size, or select specific fields.]"

// Truncate bounds text to maxChars encoded units. When the text is longer, the longest
// prefix ending on a rune boundary is kept and a notice is appended.
func Truncate(text string, maxChars int) (string, bool) {
	if len(text) <= maxChars {
		return text, false
	}

	end := maxChars
	if end < 0 {
		end = 0
	}
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[:end] + fmt.Sprintf(truncationNotice, maxChars, len(text)), true
}
