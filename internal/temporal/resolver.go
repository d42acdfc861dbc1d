// Package temporal resolves the date/time phrase in a short message.
//
// Resolution is a strict priority cascade: an ordered list of Matchers is
// tried in turn and the first one that finds a valid occurrence wins. Time
// ranges ("3:30pm-4:30pm") are collapsed to their start before the cascade
// runs, so a range never resolves to its end.
package temporal

import (
	"strings"

	appLog "msgcal/internal/log"
	"msgcal/internal/model"
)

// Resolver runs the matcher cascade. It is immutable after New and safe for
// concurrent use.
type Resolver struct {
	matchers []Matcher
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMatchers replaces the built-in cascade.
func WithMatchers(ms ...Matcher) Option {
	return func(r *Resolver) {
		r.matchers = append([]Matcher(nil), ms...)
	}
}

// WithFallback appends a generic natural-language matcher after the
// built-in cascade.
func WithFallback(p NaturalParser) Option {
	return func(r *Resolver) {
		if p == nil {
			return
		}
		r.matchers = append(r.matchers, FallbackMatcher(p))
	}
}

// New returns a Resolver with the default cascade.
func New(opts ...Option) *Resolver {
	r := &Resolver{matchers: DefaultMatchers()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Matchers returns the cascade in priority order.
func (r *Resolver) Matchers() []Matcher {
	return append([]Matcher(nil), r.matchers...)
}

// Resolve returns the first valid interpretation of text, or false when no
// matcher fires.
func (r *Resolver) Resolve(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
	work, rw := collapseRange(text)

	for _, m := range r.matchers {
		tm, ok := m.Match(work, rc)
		if !ok {
			continue
		}
		if rw != nil {
			tm.Span = rw.mapSpan(tm.Span, text)
		}
		appLog.Debug("temporal match",
			"matcher", m.Name(),
			"span", tm.Span.Text,
			"date", civilDate{tm.Year, tm.Month, tm.Day}.noon().Format("2006-01-02"),
			"timed", tm.HasTime(),
		)
		return tm, true
	}
	return model.TemporalMatch{}, false
}

// rangeRewrite records where collapseRange replaced a range with its start.
type rangeRewrite struct {
	start  int // offset of the range in both texts
	oldEnd int // end of the range in the original text
	newEnd int // end of the replacement in the rewritten text
}

// collapseRange rewrites the earliest time range in text to its start time.
// A start without am/pm borrows the end's marker ("3-4pm" -> "3pm");
// 24-hour ranges keep their start as written ("1630-1730" -> "1630").
func collapseRange(text string) (string, *rangeRewrite) {
	start, idx := firstClockRange(text)
	if idx == nil {
		start, idx = first24hRange(text)
	} else if s24, i24 := first24hRange(text); i24 != nil && i24[0] < idx[0] {
		start, idx = s24, i24
	}
	if idx == nil {
		return text, nil
	}
	rw := &rangeRewrite{start: idx[0], oldEnd: idx[1], newEnd: idx[0] + len(start)}
	return text[:idx[0]] + start + text[idx[1]:], rw
}

// firstClockRange finds the first 12-hour style range and its start text.
func firstClockRange(text string) (string, []int) {
	for _, idx := range rangePattern.FindAllStringSubmatchIndex(text, -1) {
		if !rangeHasClock(text, idx) {
			continue
		}

		var b strings.Builder
		b.WriteString(group(text, idx, 1))
		if m := group(text, idx, 2); m != "" {
			b.WriteString(":")
			b.WriteString(m)
		}
		marker := group(text, idx, 3)
		if marker == "" {
			marker = group(text, idx, 6)
		}
		b.WriteString(marker)
		return b.String(), idx
	}
	return "", nil
}

// first24hRange finds the first valid 24-hour range and its start text.
func first24hRange(text string) (string, []int) {
	for _, idx := range clock24RangePattern.FindAllStringSubmatchIndex(text, -1) {
		if _, ok := parseClock24Range(text, idx); ok {
			return group(text, idx, 1), idx
		}
	}
	return "", nil
}

// mapSpan translates a span found in the rewritten text back to original.
// A span touching the replacement is widened to cover the whole range.
func (rw *rangeRewrite) mapSpan(s model.Span, original string) model.Span {
	shift := rw.oldEnd - rw.newEnd
	start, end := s.Offset, s.End()

	if start >= rw.newEnd {
		start += shift
	}
	switch {
	case end > rw.newEnd:
		end += shift
	case end > rw.start:
		end = rw.oldEnd
	}
	return model.Span{Offset: start, Length: end - start, Text: original[start:end]}
}
