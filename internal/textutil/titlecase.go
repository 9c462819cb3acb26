package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleIfLower title-cases value when it contains letters and all of them are
// lowercase. Mixed or upper case input is returned trimmed but otherwise
// untouched so stylised names survive.
func TitleIfLower(value string) string {
	value = strings.TrimSpace(value)
	hasLetter := false
	for _, r := range value {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsLower(r) {
				return value
			}
		}
	}
	if !hasLetter {
		return value
	}
	return cases.Title(language.Und).String(value)
}
