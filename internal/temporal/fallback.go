package temporal

import (
	"regexp"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	appLog "msgcal/internal/log"
	"msgcal/internal/model"
)

// NaturalParser is a general-purpose natural-language date parser.
// *when.Parser satisfies it.
type NaturalParser interface {
	Parse(text string, base time.Time) (*when.Result, error)
}

// NewNaturalParser returns an English olebedev/when parser.
func NewNaturalParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// FallbackMatcher wraps a NaturalParser as the last cascade step.
//
// A generic parser tends to default to today when it only understands part
// of a phrase. Such results are dropped when the text spells out a day
// number, so an explicit "32nd" is never silently turned into today.
func FallbackMatcher(p NaturalParser) Matcher {
	return MatcherFunc{ID: MatcherFallback, Fn: func(text string, rc model.ResolutionContext) (model.TemporalMatch, bool) {
		now := rc.LocalNow()
		res, err := p.Parse(text, now)
		if err != nil {
			appLog.Debug("fallback parser failed", "err", err)
			return model.TemporalMatch{}, false
		}
		if res == nil {
			return model.TemporalMatch{}, false
		}

		at := res.Time.In(now.Location())
		d := dateOf(at)
		if suspectToday(text, d, now) {
			appLog.Debug("fallback result discarded", "reason", "explicit day resolves to today", "text", res.Text)
			return model.TemporalMatch{}, false
		}

		span := model.Span{Offset: res.Index, Length: len(res.Text), Text: res.Text}
		if span.Offset < 0 || span.End() > len(text) {
			span = model.Span{Text: res.Text}
		}
		tm := model.TemporalMatch{
			Span:  span,
			Year:  d.Year,
			Month: d.Month,
			Day:   d.Day,
		}
		if mentionsClock(res.Text) {
			tm.Time = &model.TimeOfDay{Hour: at.Hour(), Minute: at.Minute()}
		}
		return tm, true
	}}
}

// clockWordPattern finds a time of day inside a parser's matched text.
var clockWordPattern = regexp.MustCompile(`(?i)\d\s*(?:am|pm|a\.m\.|p\.m\.)|\d[:.]\d{2}|\b(?:noon|midday|midnight)\b|o'?clock`)

// mentionsClock reports whether matched carries a time of day rather than
// only a date.
func mentionsClock(matched string) bool {
	return clockWordPattern.MatchString(matched)
}
