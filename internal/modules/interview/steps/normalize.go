package steps

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	quoteReplacer      = strings.NewReplacer("«", "", "»", "", "\"", "", "“", "", "”", "", "„", "")
	spaceBeforePunctRe = regexp.MustCompile(`\s+([.,!?])`)
)

// NormalizeQuestion makes a generated question safe to prefix with an address
// form: quotes are dropped, everything after the first comma is lowercased
// (the whole text when there is no comma) and the first letter is capitalized.
func NormalizeQuestion(text string) string {
	text = quoteReplacer.Replace(text)
	text = spaceBeforePunctRe.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(text)

	if i := strings.Index(text, ","); i >= 0 {
		text = text[:i] + strings.ToLower(text[i:])
	} else {
		text = strings.ToLower(text)
	}
	return capitalizeFirst(text)
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ClosingMessage is the last thing the interviewer says.
func ClosingMessage(address string) string {
	return NormalizeQuestion(addressOrDefault(address) + ", " + ClosingMessageSuffix)
}
