// Package event turns a resolved date/time and a title into a calendar event.
package event

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"msgcal/internal/model"
)

// ErrInvalidEvent reports an internal invariant violation; it never results
// from ordinary user input.
var ErrInvalidEvent = errors.New("invalid event")

// Assemble builds an Event from a match.
//
// Timed matches become [start, start+DefaultDurationMinutes) with start
// built directly as wall-clock time in rc.Location. Date-only matches become
// all-day events whose Start is local midnight and whose End is zero.
func Assemble(title string, m model.TemporalMatch, rc model.ResolutionContext) (model.Event, error) {
	if strings.TrimSpace(title) == "" {
		return model.Event{}, errors.Wrap(ErrInvalidEvent, "empty title")
	}
	if rc.Location == nil {
		return model.Event{}, errors.Wrap(ErrInvalidEvent, "no timezone")
	}
	if m.Month < time.January || m.Month > time.December || m.Day < 1 || m.Day > 31 {
		return model.Event{}, errors.Wrapf(ErrInvalidEvent, "bad date %04d-%02d-%02d", m.Year, int(m.Month), m.Day)
	}

	if !m.HasTime() {
		return model.Event{
			Title:  title,
			AllDay: true,
			Start:  time.Date(m.Year, m.Month, m.Day, 0, 0, 0, 0, rc.Location),
		}, nil
	}

	if rc.DefaultDurationMinutes <= 0 {
		return model.Event{}, errors.Wrapf(ErrInvalidEvent, "non-positive duration %d", rc.DefaultDurationMinutes)
	}
	tod := m.Time
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 {
		return model.Event{}, errors.Wrapf(ErrInvalidEvent, "bad time %02d:%02d", tod.Hour, tod.Minute)
	}

	start := time.Date(m.Year, m.Month, m.Day, tod.Hour, tod.Minute, 0, 0, rc.Location)
	return model.Event{
		Title: title,
		Start: start,
		End:   start.Add(time.Duration(rc.DefaultDurationMinutes) * time.Minute),
	}, nil
}
