package text

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Weekday names as patients type them (normalized form), mapped to Go weekdays.
var weekdayNames = map[string]time.Weekday{
	"السبت": time.Saturday, "سبت": time.Saturday,
	"الاحد": time.Sunday, "احد": time.Sunday,
	"الاثنين": time.Monday, "اثنين": time.Monday,
	"الثلاثاء": time.Tuesday, "ثلاثاء": time.Tuesday,
	"الاربعاء": time.Wednesday, "اربعاء": time.Wednesday,
	"الخميس": time.Thursday, "خميس": time.Thursday,
	"الجمعة": time.Friday, "جمعة": time.Friday,
	"saturday": time.Saturday, "sunday": time.Sunday, "monday": time.Monday,
	"tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday,
}

var (
	isoDateRe   = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	slashDateRe = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	dashDateRe  = regexp.MustCompile(`\b(\d{2})-(\d{2})-(\d{4})`)
)

// ParseRelativeDate resolves a free-text date reference against now, which
// callers supply in the clinic timezone. It understands today/tomorrow/
// day-after phrases (Arabic and English), weekday names (next occurrence),
// and literal YYYY-MM-DD, DD/MM/YYYY and DD-MM-YYYY forms. The returned time
// is midnight in now's location; ok is false when nothing date-like matched.
func ParseRelativeDate(s string, now time.Time) (time.Time, bool) {
	norm := Normalize(s)
	if norm == "" {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if strings.Contains(norm, "بعد بكرا") || strings.Contains(norm, "بعد بكرة") {
		return today.AddDate(0, 0, 2), true
	}
	if strings.Contains(norm, "بكرا") || strings.Contains(norm, "بكرة") || strings.Contains(norm, "tomorrow") {
		return today.AddDate(0, 0, 1), true
	}
	if strings.Contains(norm, "اليوم") || strings.Contains(norm, "today") {
		return today, true
	}

	// Scan tokens in message order so a message naming two weekdays
	// always resolves to the first one mentioned.
	for _, tok := range strings.Fields(norm) {
		if wd, ok := weekdayNames[tok]; ok {
			ahead := int(wd-today.Weekday()+7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return today.AddDate(0, 0, ahead), true
		}
	}

	if m := isoDateRe.FindStringSubmatch(norm); m != nil {
		return buildDate(m[1], m[2], m[3], now.Location())
	}
	if m := slashDateRe.FindStringSubmatch(norm); m != nil {
		return buildDate(m[3], m[2], m[1], now.Location())
	}
	if m := dashDateRe.FindStringSubmatch(norm); m != nil {
		return buildDate(m[3], m[2], m[1], now.Location())
	}

	return time.Time{}, false
}

func buildDate(y, m, d string, loc *time.Location) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// Reject rollovers like 31/02.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
