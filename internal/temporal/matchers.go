package temporal

import (
	"regexp"
	"sort"
	"time"

	"msgcal/internal/model"
)

// Matcher names, in cascade order.
const (
	MatcherOrdinalTime = "ordinal_time"
	MatcherMonthDay    = "month_day"
	MatcherOrdinal     = "ordinal"
	MatcherClock24     = "clock24"
	MatcherClock12     = "clock12"
	MatcherRelative    = "relative"
	MatcherWeekday     = "weekday"
	MatcherRelativeDay = "relative_day"
	MatcherFallback    = "fallback"
)

// Matcher recognizes one date/time notation. Match returns false when the
// notation is absent or every occurrence fails validation.
type Matcher interface {
	Name() string
	Match(text string, rc model.ResolutionContext) (model.TemporalMatch, bool)
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc struct {
	ID string
	Fn func(text string, rc model.ResolutionContext) (model.TemporalMatch, bool)
}

func (f MatcherFunc) Name() string { return f.ID }

func (f MatcherFunc) Match(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	tm, ok := f.Fn(text, rc)
	if ok {
		tm.Matcher = f.ID
	}
	return tm, ok
}

// DefaultMatchers returns the built-in cascade, highest priority first.
func DefaultMatchers() []Matcher {
	return []Matcher{
		MatcherFunc{MatcherOrdinalTime, matchOrdinalTime},
		MatcherFunc{MatcherMonthDay, matchMonthDay},
		MatcherFunc{MatcherOrdinal, matchOrdinal},
		MatcherFunc{MatcherClock24, matchClock(clock24Pattern, parseClock24)},
		MatcherFunc{MatcherClock12, matchClock(clock12Pattern, parseClock12)},
		MatcherFunc{MatcherRelative, matchRelative},
		MatcherFunc{MatcherWeekday, matchWeekday},
		MatcherFunc{MatcherRelativeDay, matchRelativeDay},
	}
}

func newMatch(text string, idx []int, d civilDate, tod *model.TimeOfDay) model.TemporalMatch {
	return model.TemporalMatch{
		Span:  spanOf(text, idx),
		Year:  d.Year,
		Month: d.Month,
		Day:   d.Day,
		Time:  tod,
	}
}

func matchOrdinalTime(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	now := rc.LocalNow()
	for _, idx := range ordinalTimePattern.FindAllStringSubmatchIndex(text, -1) {
		if precededByMonth(text, idx[0]) {
			continue
		}
		day, tod, ok := parseOrdinalTime(text, idx)
		if !ok || !validDate(now.Year(), now.Month(), day) {
			continue
		}
		d := civilDate{Year: now.Year(), Month: now.Month(), Day: day}
		return newMatch(text, idx, d, &tod), true
	}
	return model.TemporalMatch{}, false
}

// precededByMonth reports whether the word right before offset is a month
// name ("Dec 5th 7pm"); such occurrences belong to the month_day matcher.
func precededByMonth(text string, offset int) bool {
	m := trailingWordPattern.FindStringSubmatch(text[:offset])
	if m == nil {
		return false
	}
	_, ok := lookupMonth(m[1])
	return ok
}

func matchMonthDay(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	type occurrence struct {
		idx      []int
		dayFirst bool
	}
	var all []occurrence
	for _, idx := range dayMonthPattern.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, occurrence{idx, true})
	}
	for _, idx := range monthDayPattern.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, occurrence{idx, false})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].idx[0] < all[j].idx[0] })

	now := rc.LocalNow()
	for _, o := range all {
		md, ok := parseMonthDay(text, o.idx, o.dayFirst)
		if !ok {
			continue
		}
		year := md.year
		if year == 0 {
			year = now.Year()
		}
		if !validDate(year, md.month, md.day) {
			continue
		}
		d := civilDate{Year: year, Month: md.month, Day: md.day}
		return newMatch(text, o.idx, d, md.tod), true
	}
	return model.TemporalMatch{}, false
}

func matchOrdinal(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	now := rc.LocalNow()
	for _, idx := range ordinalPattern.FindAllStringSubmatchIndex(text, -1) {
		day, ok := parseOrdinal(text, idx)
		if !ok || !validDate(now.Year(), now.Month(), day) {
			continue
		}
		d := civilDate{Year: now.Year(), Month: now.Month(), Day: day}
		return newMatch(text, idx, d, nil), true
	}
	return model.TemporalMatch{}, false
}

// anchorDate picks the day a bare clock time refers to: tomorrow when a
// tomorrow marker is present, else the next named weekday, else today.
func anchorDate(text string, now time.Time) civilDate {
	today := dateOf(now)
	if tomorrowPattern.MatchString(text) {
		return today.addDays(1)
	}
	for _, idx := range weekdayPattern.FindAllStringSubmatchIndex(text, -1) {
		if wd, ok := parseWeekday(text, idx); ok {
			return nextWeekday(today, wd)
		}
	}
	return today
}

// hasExplicitDay reports whether text names a day number, valid or not
// ("29th", "32nd", "28 Oct").
func hasExplicitDay(text string) bool {
	if ordinalPattern.MatchString(text) {
		return true
	}
	for _, idx := range dayMonthPattern.FindAllStringSubmatchIndex(text, -1) {
		if _, ok := lookupMonth(group(text, idx, 2)); ok {
			return true
		}
	}
	for _, idx := range monthDayPattern.FindAllStringSubmatchIndex(text, -1) {
		if _, ok := lookupMonth(group(text, idx, 1)); ok {
			return true
		}
	}
	return false
}

// suspectToday reports whether a result defaulting to today should be
// dropped because the text spells out a day number that earlier matchers
// rejected.
func suspectToday(text string, d civilDate, now time.Time) bool {
	return d == dateOf(now) && hasExplicitDay(text)
}

func matchClock(re *regexp.Regexp, parse func(string, []int) (model.TimeOfDay, bool)) func(string, model.ResolutionContext) (model.TemporalMatch, bool) {
	return func(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
		now := rc.LocalNow()
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			tod, ok := parse(text, idx)
			if !ok {
				continue
			}
			d := anchorDate(text, now)
			if suspectToday(text, d, now) {
				return model.TemporalMatch{}, false
			}
			return newMatch(text, idx, d, &tod), true
		}
		return model.TemporalMatch{}, false
	}
}

func matchRelative(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	for _, idx := range relativePattern.FindAllStringSubmatchIndex(text, -1) {
		minutes, ok := parseRelative(text, idx)
		if !ok {
			continue
		}
		at := rc.LocalNow().Add(time.Duration(minutes) * time.Minute)
		tod := model.TimeOfDay{Hour: at.Hour(), Minute: at.Minute()}
		return newMatch(text, idx, dateOf(at), &tod), true
	}
	return model.TemporalMatch{}, false
}

func matchWeekday(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	for _, idx := range weekdayPattern.FindAllStringSubmatchIndex(text, -1) {
		wd, ok := parseWeekday(text, idx)
		if !ok {
			continue
		}
		return newMatch(text, idx, nextWeekday(dateOf(rc.LocalNow()), wd), nil), true
	}
	return model.TemporalMatch{}, false
}

func matchRelativeDay(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	idx := relativeDayPattern.FindStringSubmatchIndex(text)
	if idx == nil {
		return model.TemporalMatch{}, false
	}
	d := dateOf(rc.LocalNow())
	if tomorrowPattern.MatchString(group(text, idx, 1)) {
		d = d.addDays(1)
	}
	return newMatch(text, idx, d, nil), true
}
