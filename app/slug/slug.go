// Package slug turns titles into URL-safe path components.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Slugify lower-cases text and collapses every run of characters that are
// not letters or numbers (underscore included) into a single hyphen.
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(text string) string {
	text = lower.String(norm.NFC.String(strings.TrimSpace(text)))

	var b strings.Builder
	b.Grow(len(text))

	pendingHyphen := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return b.String()
}
