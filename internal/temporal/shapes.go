package temporal

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"msgcal/internal/model"
)

// group returns submatch n of a FindAllStringSubmatchIndex entry, or "".
func group(text string, idx []int, n int) string {
	if 2*n+1 >= len(idx) || idx[2*n] < 0 {
		return ""
	}
	return text[idx[2*n]:idx[2*n+1]]
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func spanOf(text string, idx []int) model.Span {
	return model.Span{Offset: idx[0], Length: idx[1] - idx[0], Text: text[idx[0]:idx[1]]}
}

// to24h converts a 12-hour clock reading. Hours outside 1-12 or minutes
// outside 0-59 are rejected.
func to24h(hour, minute int, marker string) (model.TimeOfDay, bool) {
	if hour < 1 || hour > 12 || minute < 0 || minute > 59 {
		return model.TimeOfDay{}, false
	}
	switch strings.ToLower(marker) {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour != 12 {
			hour += 12
		}
	default:
		return model.TimeOfDay{}, false
	}
	return model.TimeOfDay{Hour: hour, Minute: minute}, true
}

// validClock24 checks an already-24-hour reading.
func validClock24(hour, minute int) (model.TimeOfDay, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return model.TimeOfDay{}, false
	}
	return model.TimeOfDay{Hour: hour, Minute: minute}, true
}

// optionalMinute parses a captured minute group; empty means 0.
func optionalMinute(s string) int {
	if s == "" {
		return 0
	}
	return atoi(s)
}

// validDate reports whether y-m-d names a real calendar day.
func validDate(y int, m time.Month, d int) bool {
	if d < 1 || d > 31 {
		return false
	}
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return t.Month() == m && t.Day() == d
}

func parseOrdinalTime(text string, idx []int) (int, model.TimeOfDay, bool) {
	day := atoi(group(text, idx, 1))
	if day < 1 || day > 31 {
		return 0, model.TimeOfDay{}, false
	}
	tod, ok := to24h(atoi(group(text, idx, 2)), optionalMinute(group(text, idx, 3)), group(text, idx, 4))
	return day, tod, ok
}

// monthDay is one occurrence of a month-name date.
type monthDay struct {
	day   int
	month time.Month
	year  int // 0 when not written
	tod   *model.TimeOfDay
}

// parseMonthDay handles both dayMonthPattern and monthDayPattern; dayFirst
// selects the group layout.
func parseMonthDay(text string, idx []int, dayFirst bool) (monthDay, bool) {
	var dayStr, monthStr string
	if dayFirst {
		dayStr, monthStr = group(text, idx, 1), group(text, idx, 2)
	} else {
		monthStr, dayStr = group(text, idx, 1), group(text, idx, 2)
	}

	month, ok := lookupMonth(monthStr)
	if !ok {
		return monthDay{}, false
	}
	out := monthDay{day: atoi(dayStr), month: month}
	if out.day < 1 || out.day > 31 {
		return monthDay{}, false
	}
	if y := group(text, idx, 3); y != "" {
		out.year = atoi(y)
	}

	switch {
	case group(text, idx, 6) != "":
		tod, ok := to24h(atoi(group(text, idx, 4)), optionalMinute(group(text, idx, 5)), group(text, idx, 6))
		if !ok {
			return monthDay{}, false
		}
		out.tod = &tod
	case group(text, idx, 7) != "":
		tod, ok := validClock24(atoi(group(text, idx, 7)), atoi(group(text, idx, 8)))
		if !ok {
			return monthDay{}, false
		}
		out.tod = &tod
	}
	return out, true
}

func parseOrdinal(text string, idx []int) (int, bool) {
	day := atoi(group(text, idx, 1))
	return day, day >= 1 && day <= 31
}

// parseClock24 rejects numbers that belong to another notation: followed by
// am/pm or a duration unit, or embedded in a date like 2024-10-21.
func parseClock24(text string, idx []int) (model.TimeOfDay, bool) {
	if idx[0] > 0 && strings.ContainsRune("-/.:", rune(text[idx[0]-1])) {
		return model.TimeOfDay{}, false
	}
	rest := text[idx[1]:]
	if len(rest) > 1 && strings.ContainsRune("-/.:", rune(rest[0])) && rest[1] >= '0' && rest[1] <= '9' {
		return model.TimeOfDay{}, false
	}
	if clock24SuffixPattern.MatchString(rest) {
		return model.TimeOfDay{}, false
	}
	return validClock24(atoi(group(text, idx, 1)), atoi(group(text, idx, 2)))
}

func parseClock12(text string, idx []int) (model.TimeOfDay, bool) {
	return to24h(atoi(group(text, idx, 1)), optionalMinute(group(text, idx, 2)), group(text, idx, 3))
}

// unitMinutes recognizes a duration unit by prefix.
func unitMinutes(unit string) (int, bool) {
	u := strings.ToLower(unit)
	switch {
	case strings.HasPrefix(u, "min"):
		return 1, true
	case strings.HasPrefix(u, "hour"), strings.HasPrefix(u, "hr"), u == "h":
		return 60, true
	}
	return 0, false
}

// maxRelativeMinutes bounds relative offsets to one year.
const maxRelativeMinutes = 366 * 24 * 60

func parseRelative(text string, idx []int) (int, bool) {
	amount := atoi(group(text, idx, 1))
	per, ok := unitMinutes(group(text, idx, 2))
	if !ok || amount <= 0 {
		return 0, false
	}
	total := amount * per
	if total > maxRelativeMinutes {
		return 0, false
	}
	return total, true
}

func parseWeekday(text string, idx []int) (time.Weekday, bool) {
	return lookupWeekday(group(text, idx, 1))
}

// rangeHasClock reports whether a range occurrence carries at least one
// minute field or am/pm marker; plain "5-6" is not a time range.
func rangeHasClock(text string, idx []int) bool {
	for _, n := range []int{2, 3, 5, 6} {
		if group(text, idx, n) != "" {
			return true
		}
	}
	return false
}

// parseClock24Range validates a 24-hour range. Both sides must be written
// the same way and width ("HHMM" or "HH:MM"), the start must precede the
// end, and the range must not sit inside a date or phone number.
func parseClock24Range(text string, idx []int) (model.TimeOfDay, bool) {
	if group(text, idx, 2) != group(text, idx, 4) || len(group(text, idx, 1)) != len(group(text, idx, 3)) {
		return model.TimeOfDay{}, false
	}
	if idx[0] > 0 && strings.ContainsRune("-/.:", rune(text[idx[0]-1])) {
		return model.TimeOfDay{}, false
	}
	rest := text[idx[1]:]
	if len(rest) > 1 && strings.ContainsRune("-/.:", rune(rest[0])) && rest[1] >= '0' && rest[1] <= '9' {
		return model.TimeOfDay{}, false
	}
	if clock24SuffixPattern.MatchString(rest) {
		return model.TimeOfDay{}, false
	}

	start, ok := clock24Value(group(text, idx, 1))
	if !ok {
		return model.TimeOfDay{}, false
	}
	end, ok := clock24Value(group(text, idx, 3))
	if !ok {
		return model.TimeOfDay{}, false
	}
	if end.Hour*60+end.Minute <= start.Hour*60+start.Minute {
		return model.TimeOfDay{}, false
	}
	return start, true
}

// clock24Value parses "HHMM", "HMM" or "HH:MM".
func clock24Value(s string) (model.TimeOfDay, bool) {
	s = strings.Replace(s, ":", "", 1)
	if len(s) < 3 {
		return model.TimeOfDay{}, false
	}
	return validClock24(atoi(s[:len(s)-2]), atoi(s[len(s)-2:]))
}

// shape is one date/time notation recognized for noise removal.
type shape struct {
	re    *regexp.Regexp
	valid func(text string, idx []int) bool
}

var noiseShapes = []shape{
	{rangePattern, rangeHasClock},
	{clock24RangePattern, func(t string, i []int) bool { _, ok := parseClock24Range(t, i); return ok }},
	{ordinalTimePattern, func(t string, i []int) bool { _, _, ok := parseOrdinalTime(t, i); return ok }},
	{dayMonthPattern, func(t string, i []int) bool { _, ok := parseMonthDay(t, i, true); return ok }},
	{monthDayPattern, func(t string, i []int) bool { _, ok := parseMonthDay(t, i, false); return ok }},
	{ordinalPattern, func(t string, i []int) bool { _, ok := parseOrdinal(t, i); return ok }},
	{clock12Pattern, func(t string, i []int) bool { _, ok := parseClock12(t, i); return ok }},
	{clock24Pattern, func(t string, i []int) bool { _, ok := parseClock24(t, i); return ok }},
	{relativePattern, func(t string, i []int) bool { _, ok := parseRelative(t, i); return ok }},
	{weekdayPattern, func(t string, i []int) bool { _, ok := parseWeekday(t, i); return ok }},
	{relativeDayPattern, func(string, []int) bool { return true }},
}

// NoiseSpans returns every valid date/time phrase found in text, whether or
// not the cascade picked it, merged and sorted by offset.
func NoiseSpans(text string) []model.Span {
	var raw [][2]int
	for _, s := range noiseShapes {
		for _, idx := range s.re.FindAllStringSubmatchIndex(text, -1) {
			if s.valid(text, idx) {
				raw = append(raw, [2]int{idx[0], idx[1]})
			}
		}
	}
	return mergeSpans(text, raw)
}

func mergeSpans(text string, raw [][2]int) []model.Span {
	if len(raw) == 0 {
		return nil
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i][0] < raw[j][0] })

	merged := [][2]int{raw[0]}
	for _, r := range raw[1:] {
		last := &merged[len(merged)-1]
		if r[0] <= last[1] {
			if r[1] > last[1] {
				last[1] = r[1]
			}
			continue
		}
		merged = append(merged, r)
	}

	out := make([]model.Span, 0, len(merged))
	for _, m := range merged {
		out = append(out, model.Span{Offset: m[0], Length: m[1] - m[0], Text: text[m[0]:m[1]]})
	}
	return out
}
