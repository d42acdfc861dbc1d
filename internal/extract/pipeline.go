// Package extract runs the full message-to-calendar flow: resolve the
// date/time phrase, derive a title, assemble the event and render both
// export formats.
package extract

import (
	"github.com/pkg/errors"

	"msgcal/internal/deeplink"
	"msgcal/internal/event"
	"msgcal/internal/ics"
	appLog "msgcal/internal/log"
	"msgcal/internal/model"
	"msgcal/internal/temporal"
	"msgcal/internal/title"
)

// ErrNoMatch means the message contains no recognizable date or time.
var ErrNoMatch = errors.New("no event found")

// Result is everything produced for one message.
type Result struct {
	Match       model.TemporalMatch
	Event       model.Event
	ICS         []byte
	CalendarURL string
}

// Pipeline is immutable after NewPipeline and safe for concurrent use.
type Pipeline struct {
	resolver  *temporal.Resolver
	productID string
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithProductID sets the PRODID written to .ics documents.
func WithProductID(id string) PipelineOption {
	return func(p *Pipeline) {
		p.productID = id
	}
}

// NewPipeline returns a Pipeline using r, or the default cascade when r is nil.
func NewPipeline(r *temporal.Resolver, opts ...PipelineOption) *Pipeline {
	if r == nil {
		r = temporal.New()
	}
	p := &Pipeline{resolver: r, productID: ics.DefaultProductID}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run extracts an event from text.
//
// It returns ErrNoMatch when nothing resolves. Failures after a successful
// match wrap event.ErrInvalidEvent, ics.ErrExportFailed or
// deeplink.ErrInvalidEvent and are never reported as ErrNoMatch.
func (p *Pipeline) Run(text string, rc model.ResolutionContext) (Result, error) {
	m, ok := p.resolver.Resolve(text, rc)
	if !ok {
		return Result{}, ErrNoMatch
	}

	t := title.Extract(text, m)
	ev, err := event.Assemble(t, m, rc)
	if err != nil {
		return Result{Match: m}, errors.Wrap(err, "assemble event")
	}

	tz := rc.Timezone()
	doc, err := ics.Document(ev, tz, ics.Options{
		Stamp:     rc.Now.UTC(),
		ProductID: p.productID,
	})
	if err != nil {
		return Result{Match: m, Event: ev}, errors.Wrap(err, "render ics")
	}

	link, err := deeplink.GoogleCalendar(ev, tz)
	if err != nil {
		return Result{Match: m, Event: ev}, errors.Wrap(err, "render calendar link")
	}

	appLog.Debug("event extracted",
		"matcher", m.Matcher,
		"title", ev.Title,
		"all_day", ev.AllDay,
		"start", ev.Start.Format("2006-01-02T15:04"),
	)

	return Result{
		Match:       m,
		Event:       ev,
		ICS:         doc,
		CalendarURL: link,
	}, nil
}
