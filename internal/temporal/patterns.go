package temporal

import (
	"regexp"
	"strings"
	"time"
)

// Building blocks shared by several patterns.
const (
	ordinalSuffix = `(?:st|nd|rd|th)`
	clock12       = `(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)\b`
	monthWord     = `([a-z]{3,9})\b\.?`
)

var (
	// "3:30pm-4:30pm", "3-4pm", "10:00 to 11:30"
	rangePattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)?\s*(?:-|–|to)\s*(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)?\b`)

	// "1630-1730", "09:00 - 10:00"
	clock24RangePattern = regexp.MustCompile(`\b(\d{1,2}(:?)\d{2})\s*(?:-|–|to)\s*(\d{1,2}(:?)\d{2})\b`)

	// "29th 5am", "3rd 10:30pm"
	ordinalTimePattern = regexp.MustCompile(`(?i)\b(\d{1,2})` + ordinalSuffix + `\s+` + clock12)

	// "28 Oct", "29th of October 2025 at 5pm"
	dayMonthPattern = regexp.MustCompile(`(?i)\b(\d{1,2})` + ordinalSuffix + `?(?:\s+of)?\s+` + monthWord +
		`(?:,?\s+(20\d{2})\b)?` +
		`(?:,?\s+(?:at\s+)?(?:` + clock12 + `|(\d{1,2}):(\d{2})\b))?`)

	// "Oct 28", "October 28th, 2025 2pm"
	monthDayPattern = regexp.MustCompile(`(?i)\b` + monthWord + `\s+(\d{1,2})` + ordinalSuffix + `?\b` +
		`(?:,?\s+(20\d{2})\b)?` +
		`(?:,?\s+(?:at\s+)?(?:` + clock12 + `|(\d{1,2}):(\d{2})\b))?`)

	// "29th"
	ordinalPattern = regexp.MustCompile(`(?i)\b(\d{1,2})` + ordinalSuffix + `\b`)

	// "1630", "16:30", "0900"
	clock24Pattern = regexp.MustCompile(`\b(\d{1,2}):?(\d{2})\b`)

	// "3pm", "3:30pm", "3.30pm"
	clock12Pattern = regexp.MustCompile(`(?i)\b` + clock12)

	// "30 min", "in 2 hours", "50mins"
	relativePattern = regexp.MustCompile(`(?i)\b(?:in\s+)?(\d{1,4})\s*([a-z]+)\b`)

	// "Friday", "next Monday", "thurs"
	weekdayPattern = regexp.MustCompile(`(?i)\b(?:(?:next|this)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday|tues?|thu(?:rs?)?|fri)\b`)

	// "today", "tomorrow", "tmr"
	relativeDayPattern = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|tmrw?)\b`)

	// Last word of a prefix, e.g. the month in "Dec " before "5th 7pm".
	trailingWordPattern = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?,?\s+$`)

	tomorrowPattern = regexp.MustCompile(`(?i)\b(?:tomorrow|tmrw?)\b`)

	// Text right after a bare number that means it is not a 24-hour time.
	clock24SuffixPattern = regexp.MustCompile(`(?i)^\s*(?:am|pm|min|hour|hr|h\b)`)
)

// months maps lowercase English month names and abbreviations.
var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

func lookupMonth(name string) (time.Month, bool) {
	m, ok := months[strings.ToLower(name)]
	return m, ok
}

func lookupWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(name)]
	return wd, ok
}
