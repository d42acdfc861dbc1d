package model

import (
	"time"

	"github.com/pkg/errors"
)

// Span locates a substring of the original message by byte offset.
type Span struct {
	Offset int
	Length int
	Text   string
}

// End returns the byte offset just past the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

// TimeOfDay is a wall-clock time in 24-hour form.
type TimeOfDay struct {
	Hour   int // 0-23
	Minute int // 0-59
}

// TemporalMatch is the resolver's interpretation of the date/time phrase
// found in a message. Time is nil for date-only matches.
type TemporalMatch struct {
	Span Span

	// Matcher names the cascade rule that produced this match.
	Matcher string

	Year  int
	Month time.Month
	Day   int

	Time *TimeOfDay
}

// HasTime reports whether the match carries a time of day.
func (m TemporalMatch) HasTime() bool {
	return m.Time != nil
}

// Event represents a single calendar event extracted from a message.
//
// For all-day events End is the zero time and Start is local midnight; only
// its date components are meaningful.
type Event struct {
	Title string

	AllDay bool

	// Start / End are wall-clock times in the resolution timezone.
	Start time.Time
	End   time.Time
}

// ResolutionContext carries everything the core needs besides the text.
type ResolutionContext struct {
	// Now is the reference instant for relative expressions.
	Now time.Time
	// Location is the target timezone; all dates are built in it.
	Location *time.Location
	// DefaultDurationMinutes is the length of timed events.
	DefaultDurationMinutes int
}

// NewResolutionContext validates tz and minutes and returns a context.
func NewResolutionContext(now time.Time, tz string, minutes int) (ResolutionContext, error) {
	if tz == "" {
		return ResolutionContext{}, errors.New("timezone is empty")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return ResolutionContext{}, errors.Wrapf(err, "load timezone %q", tz)
	}
	if minutes <= 0 {
		return ResolutionContext{}, errors.Errorf("default duration must be positive, got %d", minutes)
	}
	return ResolutionContext{
		Now:                    now,
		Location:               loc,
		DefaultDurationMinutes: minutes,
	}, nil
}

// Timezone returns the IANA name of the context's location.
func (rc ResolutionContext) Timezone() string {
	if rc.Location == nil {
		return ""
	}
	return rc.Location.String()
}

// LocalNow returns Now expressed in the context's location.
func (rc ResolutionContext) LocalNow() time.Time {
	if rc.Location == nil {
		return rc.Now
	}
	return rc.Now.In(rc.Location)
}
