package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	"msgcal/internal/model"
)

// ParseEvent reads a single-event document produced by Document.
//
//   - DTSTART with VALUE=DATE or without a 'T' marks an all-day event.
//   - Floating and TZID date-times are read as wall-clock time in loc;
//     UTC values (trailing Z) are converted into loc.
//
// Any missing required field is reported as ErrExportFailed.
func ParseEvent(body []byte, loc *time.Location) (model.Event, error) {
	if len(body) == 0 {
		return model.Event{}, errors.Wrap(ErrExportFailed, "empty document")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return model.Event{}, errors.Wrap(ErrExportFailed, err.Error())
	}

	events := cal.Events()
	if len(events) != 1 {
		return model.Event{}, errors.Wrapf(ErrExportFailed, "expected 1 VEVENT, got %d", len(events))
	}
	ve := events[0]

	var out model.Event

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p == nil || p.Value == "" {
		return out, errors.Wrap(ErrExportFailed, "missing UID")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtstamp); p == nil || p.Value == "" {
		return out, errors.Wrap(ErrExportFailed, "missing DTSTAMP")
	}
	p := ve.GetProperty(ical.ComponentPropertySummary)
	if p == nil || p.Value == "" {
		return out, errors.Wrap(ErrExportFailed, "missing SUMMARY")
	}
	out.Title = p.Value

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.Wrap(ErrExportFailed, "missing DTSTART")
	}
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		out.AllDay = true
	}

	out.Start, err = parseICSTime(dtStart.Value, loc)
	if err != nil {
		return out, errors.Wrap(ErrExportFailed, "DTSTART: "+err.Error())
	}

	dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if out.AllDay {
		if dtEnd != nil {
			return out, errors.Wrap(ErrExportFailed, "all-day event has DTEND")
		}
		return out, nil
	}
	if dtEnd == nil || dtEnd.Value == "" {
		return out, errors.Wrap(ErrExportFailed, "missing DTEND")
	}
	out.End, err = parseICSTime(dtEnd.Value, loc)
	if err != nil {
		return out, errors.Wrap(ErrExportFailed, "DTEND: "+err.Error())
	}
	return out, nil
}

// parseICSTime parses a DATE or DATE-TIME value.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse(localDateTimeFormat+"Z", v)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation(localDateTimeFormat, v, loc)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation(dateFormat, v, loc)
}
