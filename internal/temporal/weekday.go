package temporal

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "msgcal/internal/log"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// civilDate is a calendar day without a location.
type civilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func dateOf(t time.Time) civilDate {
	return civilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// noon returns the date at 12:00 UTC; used for day arithmetic so DST and
// zone offsets never move the date.
func (d civilDate) noon() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

func (d civilDate) addDays(n int) civilDate {
	return dateOf(d.noon().AddDate(0, 0, n))
}

// nextWeekday returns the first day on or after from that falls on wd.
//
// The occurrence is computed with a WEEKLY;BYDAY rule anchored at from, so
// from itself is returned when it already is wd.
func nextWeekday(from civilDate, wd time.Weekday) civilDate {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart:   from.noon(),
		Count:     1,
	})
	if err == nil {
		if occ := r.All(); len(occ) > 0 {
			return dateOf(occ[0].UTC())
		}
	}

	appLog.Error("weekday rule failed; using day arithmetic", err, "weekday", wd.String())
	ahead := (int(wd) - int(from.noon().Weekday()) + 7) % 7
	return from.addDays(ahead)
}
