// Package ics renders events as single-event iCalendar documents.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	appLog "msgcal/internal/log"
	"msgcal/internal/model"
)

// ErrExportFailed means the event could not be rendered as a complete
// document. Callers must report it instead of skipping silently.
var ErrExportFailed = errors.New("export failed")

const (
	DefaultProductID = "-//msgcal//msgcal 1.0//EN"

	// Floating local formats (no trailing Z).
	localDateTimeFormat = "20060102T150405"
	dateFormat          = "20060102"
)

// uidNamespace scopes the name-based UUIDs used as event UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://msgcal.invalid/event"))

// Options tunes document rendering. The zero value is usable.
type Options struct {
	// Stamp is written as DTSTAMP. Defaults to the event start.
	Stamp time.Time
	// ProductID overrides PRODID.
	ProductID string
	// Description is written as DESCRIPTION when non-empty.
	Description string
}

// Document renders ev as a VCALENDAR with one VEVENT.
//
//   - All-day events use DTSTART;VALUE=DATE and have no DTEND.
//   - Timed events use floating local DTSTART/DTEND, so calendar apps do not
//     shift them; tz is recorded as X-WR-TIMEZONE.
//
// The rendered document is parsed back and checked before it is returned.
func Document(ev model.Event, tz string, opts Options) ([]byte, error) {
	if err := checkEvent(ev); err != nil {
		return nil, err
	}

	productID := opts.ProductID
	if productID == "" {
		productID = DefaultProductID
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = ev.Start
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if tz != "" {
		cal.SetXWRTimezone(tz)
	}

	uid := EventUID(ev)
	vev := cal.AddEvent(uid)
	vev.SetDtStampTime(stamp)
	vev.SetSummary(ev.Title)
	if opts.Description != "" {
		vev.SetDescription(opts.Description)
	}

	if ev.AllDay {
		vev.SetAllDayStartAt(ev.Start)
	} else {
		vev.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(localDateTimeFormat))
		vev.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(localDateTimeFormat))
	}

	body := []byte(cal.Serialize(ical.WithNewLineWindows))

	if err := verify(body, ev); err != nil {
		appLog.Error("ics document failed verification", err, "uid", uid)
		return nil, err
	}
	return body, nil
}

// EventUID derives a stable UID from the title and start.
func EventUID(ev model.Event) string {
	key := ev.Title + "\x00" + ev.Start.Format(localDateTimeFormat)
	if ev.AllDay {
		key = ev.Title + "\x00" + ev.Start.Format(dateFormat)
	}
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@msgcal"
}

func checkEvent(ev model.Event) error {
	if strings.TrimSpace(ev.Title) == "" {
		return errors.Wrap(ErrExportFailed, "missing title")
	}
	if ev.Start.IsZero() {
		return errors.Wrap(ErrExportFailed, "missing start")
	}
	if ev.AllDay {
		if !ev.End.IsZero() {
			return errors.Wrap(ErrExportFailed, "all-day event with end")
		}
		return nil
	}
	if !ev.End.After(ev.Start) {
		return errors.Wrapf(ErrExportFailed, "end %s not after start %s", ev.End, ev.Start)
	}
	return nil
}

// verify re-reads body and compares it with the event it was built from.
func verify(body []byte, ev model.Event) error {
	got, err := ParseEvent(body, ev.Start.Location())
	if err != nil {
		return err
	}
	if got.AllDay != ev.AllDay {
		return errors.Wrap(ErrExportFailed, "round-trip mismatch")
	}
	if !sameWallClock(got.Start, ev.Start) {
		return errors.Wrapf(ErrExportFailed, "start round-trip mismatch: %s != %s", got.Start, ev.Start)
	}
	if !ev.AllDay && !sameWallClock(got.End, ev.End) {
		return errors.Wrapf(ErrExportFailed, "end round-trip mismatch: %s != %s", got.End, ev.End)
	}
	return nil
}

func sameWallClock(a, b time.Time) bool {
	return a.Format(localDateTimeFormat) == b.Format(localDateTimeFormat)
}
