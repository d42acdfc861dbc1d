// Package deeplink builds "add to calendar" links for resolved events.
package deeplink

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"msgcal/internal/model"
)

// ErrInvalidEvent is returned for events that cannot be expressed as a link.
var ErrInvalidEvent = errors.New("invalid event for deep link")

const (
	googleRenderURL = "https://calendar.google.com/calendar/render"

	dateFormat          = "20060102"
	localDateTimeFormat = "20060102T150405"
)

// GoogleCalendar returns a Google Calendar TEMPLATE link for ev.
//
// All-day events use an exclusive date range (end = start + 1 day) and no
// ctz. Timed events use local wall-clock values and pass tz as ctz.
func GoogleCalendar(ev model.Event, tz string) (string, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return "", errors.Wrap(ErrInvalidEvent, "missing title")
	}
	if ev.Start.IsZero() {
		return "", errors.Wrap(ErrInvalidEvent, "missing start")
	}

	var dates string
	if ev.AllDay {
		next := ev.Start.AddDate(0, 0, 1)
		dates = ev.Start.Format(dateFormat) + "/" + next.Format(dateFormat)
	} else {
		if !ev.End.After(ev.Start) {
			return "", errors.Wrapf(ErrInvalidEvent, "end %s not after start %s", ev.End, ev.Start)
		}
		dates = ev.Start.Format(localDateTimeFormat) + "/" + ev.End.Format(localDateTimeFormat)
	}

	var b strings.Builder
	b.WriteString(googleRenderURL)
	b.WriteString("?action=TEMPLATE")
	b.WriteString("&text=")
	b.WriteString(escape(ev.Title))
	b.WriteString("&dates=")
	b.WriteString(dates)
	if !ev.AllDay && tz != "" {
		b.WriteString("&ctz=")
		b.WriteString(escape(tz))
	}
	return b.String(), nil
}

// escape percent-encodes s for a query value, using %20 for spaces.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
