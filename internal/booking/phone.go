package booking

import (
	"regexp"
	"strings"
)

var localMobileRe = regexp.MustCompile(`^05\d{8}$`)

// NormalizePhone canonicalizes a Saudi mobile number to the local
// 05XXXXXXXX form. Accepts +966/00966/966 international prefixes and
// ignores spaces, dashes and parentheses. Returns false when the input
// is not a valid Saudi mobile number.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩': // Arabic-Indic digits
			b.WriteRune('0' + (r - '٠'))
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// separators and the plus sign carry no information
		default:
			return "", false
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "00966"):
		digits = "0" + digits[5:]
	case strings.HasPrefix(digits, "966"):
		digits = "0" + digits[3:]
	case strings.HasPrefix(digits, "5") && len(digits) == 9:
		digits = "0" + digits
	}

	if !localMobileRe.MatchString(digits) {
		return "", false
	}
	return digits, true
}
