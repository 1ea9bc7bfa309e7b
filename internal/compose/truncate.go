package compose

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sentence boundaries are terminal punctuation followed by whitespace or
// end of text.
var sentenceEndRegex = regexp.MustCompile(`[.?!](\s|$)`)

// TruncateAtSentence shortens text to at most max bytes. It cuts at the
// latest sentence boundary at or before the limit; failing that, at the
// latest word boundary; failing that, hard at the limit. Text already
// within the limit is returned untouched.
func TruncateAtSentence(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}

	cut := -1
	for _, loc := range sentenceEndRegex.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation mark; keep it inside the limit.
		if loc[0]+1 <= max {
			cut = loc[0] + 1
		} else {
			break
		}
	}

	if cut == -1 {
		if idx := strings.LastIndex(text[:max+1], " "); idx > 0 {
			cut = idx
		} else {
			// Never split a multi-byte rune on a hard cut.
			cut = max
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
	}

	return strings.TrimSpace(text[:cut])
}
