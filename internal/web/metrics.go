package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message outcomes.
const (
	outcomeEvent    = "event"
	outcomeNoMatch  = "no_match"
	outcomeFiltered = "filtered"
	outcomeError    = "error"
)

// Metrics counts processed messages. Each Server owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	Messages    *prometheus.CounterVec
	MatcherHits *prometheus.CounterVec
}

// NewMetrics creates a registry with the message counters and the Go
// runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "msgcal_messages_total",
			Help: "Messages processed by outcome",
		}, []string{"outcome"}), // outcome: "event", "no_match", "filtered", "error"

		MatcherHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "msgcal_matcher_hits_total",
			Help: "Resolved messages by the matcher that fired",
		}, []string{"matcher"}),
	}
}

// IncrementOutcome records a message outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Messages.WithLabelValues(outcome).Inc()
	}
}

// IncrementMatcher records a hit for the named matcher.
func (m *Metrics) IncrementMatcher(name string) {
	if m != nil && name != "" {
		m.MatcherHits.WithLabelValues(name).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
