package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgcal/internal/model"
)

func singapore(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Singapore")
	require.NoError(t, err)
	return loc
}

func TestDocument_Timed(t *testing.T) {
	loc := singapore(t)
	ev := model.Event{
		Title: "Team meeting",
		Start: time.Date(2024, 10, 22, 15, 0, 0, 0, loc),
		End:   time.Date(2024, 10, 22, 16, 0, 0, 0, loc),
	}

	body, err := Document(ev, "Asia/Singapore", Options{Stamp: time.Date(2024, 10, 21, 1, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	doc := string(body)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "METHOD:PUBLISH")
	assert.Contains(t, doc, "X-WR-TIMEZONE:Asia/Singapore")
	assert.Contains(t, doc, "SUMMARY:Team meeting")
	assert.Contains(t, doc, "DTSTART:20241022T150000\r\n")
	assert.Contains(t, doc, "DTEND:20241022T160000\r\n")
	assert.Contains(t, doc, "DTSTAMP:20241021T010000Z")
	assert.NotContains(t, doc, "DTSTART:20241022T070000Z", "start must stay local")

	got, err := ParseEvent(body, loc)
	require.NoError(t, err)
	assert.False(t, got.AllDay)
	assert.True(t, got.Start.Equal(ev.Start))
	assert.True(t, got.End.Equal(ev.End))
	assert.Equal(t, ev.Title, got.Title)
}

func TestDocument_AllDay(t *testing.T) {
	loc := singapore(t)
	ev := model.Event{
		Title:  "Meeting",
		AllDay: true,
		Start:  time.Date(2024, 10, 25, 0, 0, 0, 0, loc),
	}

	body, err := Document(ev, "Asia/Singapore", Options{})
	require.NoError(t, err)
	doc := string(body)

	assert.Contains(t, doc, "DTSTART;VALUE=DATE:20241025")
	assert.NotContains(t, doc, "DTEND")

	got, err := ParseEvent(body, loc)
	require.NoError(t, err)
	assert.True(t, got.AllDay)
	assert.Equal(t, "2024-10-25", got.Start.Format("2006-01-02"))
	assert.True(t, got.End.IsZero())
}

func TestDocument_StableUID(t *testing.T) {
	loc := singapore(t)
	ev := model.Event{Title: "Sync", Start: time.Date(2024, 10, 22, 15, 30, 0, 0, loc), End: time.Date(2024, 10, 22, 16, 30, 0, 0, loc)}

	assert.Equal(t, EventUID(ev), EventUID(ev))
	other := ev
	other.Title = "Other"
	assert.NotEqual(t, EventUID(ev), EventUID(other))

	a, err := Document(ev, "Asia/Singapore", Options{})
	require.NoError(t, err)
	b, err := Document(ev, "Asia/Singapore", Options{})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), "UID:"+EventUID(ev))
}

func TestDocument_Failures(t *testing.T) {
	loc := singapore(t)
	start := time.Date(2024, 10, 22, 15, 0, 0, 0, loc)

	tests := []struct {
		name string
		ev   model.Event
	}{
		{"missing title", model.Event{Start: start, End: start.Add(time.Hour)}},
		{"missing start", model.Event{Title: "x1"}},
		{"timed without end", model.Event{Title: "x1", Start: start}},
		{"end before start", model.Event{Title: "x1", Start: start, End: start.Add(-time.Hour)}},
		{"all-day with end", model.Event{Title: "x1", AllDay: true, Start: start, End: start.Add(time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Document(tt.ev, "Asia/Singapore", Options{})
			require.Error(t, err)
			assert.Nil(t, body)
			assert.True(t, errors.Is(err, ErrExportFailed))
		})
	}
}

func TestParseEvent_Rejects(t *testing.T) {
	loc := singapore(t)

	noStart := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:abc",
		"DTSTAMP:20241021T010000Z",
		"SUMMARY:Nothing",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	_, err := ParseEvent([]byte(noStart), loc)
	assert.True(t, errors.Is(err, ErrExportFailed))

	_, err = ParseEvent(nil, loc)
	assert.True(t, errors.Is(err, ErrExportFailed))
}

func TestParseICSTime(t *testing.T) {
	loc := singapore(t)

	got, err := parseICSTime("20241022T070000Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-22 15:00", got.Format("2006-01-02 15:04"))

	got, err = parseICSTime("20241022T150000", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-22 15:00", got.Format("2006-01-02 15:04"))

	got, err = parseICSTime("20241022", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-22 00:00", got.Format("2006-01-02 15:04"))

	_, err = parseICSTime("", loc)
	assert.Error(t, err)
}

func TestDocument_TitleEscaping(t *testing.T) {
	loc := singapore(t)

	for _, title := range []string{`path C:\temp\new`, "Lunch, drinks; dessert"} {
		t.Run(title, func(t *testing.T) {
			ev := model.Event{Title: title, AllDay: true, Start: time.Date(2024, 10, 25, 0, 0, 0, 0, loc)}

			body, err := Document(ev, "Asia/Singapore", Options{})
			require.NoError(t, err)

			got, err := ParseEvent(body, loc)
			require.NoError(t, err)
			assert.Equal(t, title, got.Title)
		})
	}
}

func TestDocument_CRLF(t *testing.T) {
	loc := singapore(t)
	ev := model.Event{Title: "Sync", Start: time.Date(2024, 10, 22, 15, 30, 0, 0, loc), End: time.Date(2024, 10, 22, 16, 30, 0, 0, loc)}

	body, err := Document(ev, "Asia/Singapore", Options{})
	require.NoError(t, err)

	doc := string(body)
	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, strings.Count(doc, "\n"), strings.Count(doc, "\r\n"), "every line ends with CRLF")
}
