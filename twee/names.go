package twee

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

var (
	annotations = regexp.MustCompile(`\{.*?\}|\[.*?\]`)
	reserved    = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// BadName replaces names which are empty after sanitizing.
const BadName = "_bad_file_name_"

// SanitizeName makes file name from passage title or section name: removes
// tags and metadata, replaces characters not allowed in file names.
// SanitizeName(SanitizeName(s)) == SanitizeName(s).
func SanitizeName(title string) string {
	name := annotations.ReplaceAllString(title, "")
	name = strings.TrimSpace(reserved.ReplaceAllString(name, "_"))
	if len(name) == 0 {
		return BadName
	}
	return name
}

// Transliterate converts non-ASCII letters to their ASCII equivalents
// leaving everything else, including original capitalization, in place.
// For example: "Глава 1.css" -> "Glava 1.css"
func Transliterate(s string) string {
	var (
		out  strings.Builder
		word strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			out.WriteString(transliterateWord(word.String()))
			word.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
			continue
		}
		flush()
		out.WriteRune(r)
	}
	flush()
	return out.String()
}

func transliterateWord(word string) string {
	if isASCII(word) {
		return word
	}

	runes := []rune(word)
	firstUpper := unicode.IsUpper(runes[0])
	allUpper := isAllUpper(runes)

	slug.Lowercase = false
	trans := slug.Make(word)
	slug.Lowercase = true

	if len(trans) == 0 {
		return word
	}

	out := []rune(trans)
	switch {
	case allUpper:
		for i := range out {
			out[i] = unicode.ToUpper(out[i])
		}
	case firstUpper:
		out[0] = unicode.ToUpper(out[0])
	}
	return string(out)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isAllUpper(runes []rune) bool {
	hasLetter := false
	for _, r := range runes {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter && len(runes) > 1
}
