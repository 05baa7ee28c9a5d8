package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	weekdayPrefix  = regexp.MustCompile(`(?i)^(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)[a-z]*\.?,?\s+`)
	rangeSeparator = regexp.MustCompile(`\s+-\s+|\s*[–—]\s*|\s+to\s+|\s+until\s+`)
	isoDate        = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
	usNumericDate  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`)
	monthFirstDate = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayFirstDate   = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]{3,9})\.?,?\s+(\d{4})`)
	yearToken      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDateRangeStart returns the start date of a loosely formatted range
// ("Jan 08, 2026 - Jan 09, 2026", "Mar 15-22, 2026", "2026-03-15") as Unix
// milliseconds at local midnight. It returns 0 when the string cannot be
// parsed; callers must check for 0 explicitly.
func ParseDateRangeStart(s string) int64 {
	return ParseDateRangeStartIn(s, time.Local)
}

// ParseDateRangeStartIn is ParseDateRangeStart with an explicit location
func ParseDateRangeStartIn(s string, loc *time.Location) int64 {
	t, ok := parseRangeStart(s, loc)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// RangeYear returns the year of the range start, falling back to the first
// four-digit year in the string. Returns 0 when neither is present.
func RangeYear(s string) int {
	if t, ok := parseRangeStart(s, time.Local); ok {
		return t.Year()
	}
	if m := yearToken.FindString(s); m != "" {
		year, _ := strconv.Atoi(m)
		return year
	}
	return 0
}

func parseRangeStart(s string, loc *time.Location) (time.Time, bool) {
	full := strings.TrimSpace(s)
	if full == "" {
		return time.Time{}, false
	}

	start := full
	if idx := rangeSeparator.FindStringIndex(full); idx != nil && idx[0] > 0 {
		start = full[:idx[0]]
	}
	start = weekdayPrefix.ReplaceAllString(strings.TrimSpace(start), "")

	if m := isoDate.FindStringSubmatch(start); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc)
	}

	if m := usNumericDate.FindStringSubmatch(start); m != nil {
		return buildDate(atoi(m[3]), atoi(m[1]), atoi(m[2]), loc)
	}

	if m := dayFirstDate.FindStringSubmatch(start); m != nil {
		month, ok := lookupMonth(m[2])
		if !ok {
			return time.Time{}, false
		}
		return buildDate(atoi(m[3]), int(month), atoi(m[1]), loc)
	}

	if m := monthFirstDate.FindStringSubmatch(start); m != nil {
		month, ok := lookupMonth(m[1])
		if !ok {
			return time.Time{}, false
		}
		// The year may only appear at the end of the range ("Mar 15 - Mar 22, 2026")
		yearStr := yearToken.FindString(start)
		if yearStr == "" {
			yearStr = yearToken.FindString(full)
		}
		if yearStr == "" {
			return time.Time{}, false
		}
		return buildDate(atoi(yearStr), int(month), atoi(m[2]), loc)
	}

	return time.Time{}, false
}

func lookupMonth(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	lower := strings.ToLower(name)
	month, ok := monthsByPrefix[lower[:3]]
	return month, ok
}

func buildDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if year < 1900 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes Feb 30 into March; reject instead
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
