package title

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"msgcal/internal/model"
	"msgcal/internal/temporal"
)

func TestExtract(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Singapore")
	rc := model.ResolutionContext{
		Now:                    time.Date(2024, 10, 21, 9, 0, 0, 0, loc),
		Location:               loc,
		DefaultDurationMinutes: 60,
	}
	r := temporal.New()

	tests := []struct {
		input string
		want  string
	}{
		{"Team meeting tmr 3pm", "Team meeting"},
		{"29th 5am", "Event"},
		{"Meeting Friday", "Meeting"},
		{"3:30pm-4:30pm sync", "sync"},
		{"Lunch at 12pm", "Lunch"},
		{"Dinner at the cafe at 7pm", "Dinner at the cafe"},
		{"Call mom in 30 min", "Call mom"},
		{"Oct 28 2pm: Quarterly Review", "Quarterly Review"},
		{"Standup on next Monday at 10am", "Standup"},
		{"IMPORTANT sync tomorrow 1630", "IMPORTANT sync"},
		{"a 5pm", "Event"},
		{"x 5pm", "Event"},
		{"Gym 3.30pm, then swim 5pm", "Gym then swim"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, _ := r.Resolve(tt.input, rc)
			assert.Equal(t, tt.want, Extract(tt.input, m))
		})
	}
}

func TestExtract_ZeroMatch(t *testing.T) {
	assert.Equal(t, "hello there", Extract("  hello   there ", model.TemporalMatch{}))
	assert.Equal(t, Fallback, Extract("", model.TemporalMatch{}))
}

func TestExtract_MatchSpanRemoved(t *testing.T) {
	// A span the noise shapes do not know about is still removed.
	text := "Review noonish"
	m := model.TemporalMatch{Span: model.Span{Offset: 7, Length: 7, Text: "noonish"}}
	assert.Equal(t, "Review", Extract(text, m))
}
