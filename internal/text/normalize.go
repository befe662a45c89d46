// Package text provides Arabic-aware text normalization and lightweight
// date parsing used by the classifier and entity matchers.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

const tatweel = 'ـ'

// Diacritic range used in Arabic script (tashkeel plus Quranic marks).
func isArabicDiacritic(r rune) bool {
	return (r >= 0x0617 && r <= 0x061A) || (r >= 0x064B && r <= 0x0652)
}

var arabicIndicDigits = map[rune]rune{
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
}

var letterFolds = map[rune]rune{
	'أ': 'ا', 'إ': 'ا', 'آ': 'ا',
	'ى': 'ي', 'ئ': 'ي',
	'ؤ': 'و',
}

// Normalize folds Arabic text into a canonical matching form: alef variants
// collapse to bare alef, teh-marbuta-adjacent yeh forms to yeh, diacritics
// and tatweel are stripped, Arabic-Indic digits become Latin digits, and the
// result is lowercased and trimmed. Latin text passes through lowercased.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == tatweel || isArabicDiacritic(r) {
			continue
		}
		if d, ok := arabicIndicDigits[r]; ok {
			b.WriteRune(d)
			continue
		}
		if f, ok := letterFolds[r]; ok {
			b.WriteRune(f)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var punctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// Clean normalizes and removes punctuation, collapsing interior whitespace.
// Used for exact-phrase comparison (greetings, skip words).
func Clean(s string) string {
	s = Normalize(s)
	s = punctRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits a normalized string on whitespace.
func Tokens(s string) []string {
	return strings.FieldsFunc(Normalize(s), unicode.IsSpace)
}
