package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgcal/internal/config"
	"msgcal/internal/extract"
	"msgcal/internal/prefs"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *prefs.Store) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timezone = "Asia/Singapore"
	if mutate != nil {
		mutate(cfg)
	}

	store, err := prefs.Open("")
	require.NoError(t, err)

	loc, err := time.LoadLocation("Asia/Singapore")
	require.NoError(t, err)
	fixed := time.Date(2024, 10, 21, 9, 0, 0, 0, loc)

	s := NewServer(cfg, extract.NewPipeline(nil), store, WithClock(func() time.Time { return fixed }))
	return s, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeParse(t *testing.T, rec *httptest.ResponseRecorder) parseResponse {
	t.Helper()
	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "pw"}
	})

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestParse_Found(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		body    string
		title   string
		allDay  bool
		start   string
		end     string
		matcher string
	}{
		{`{"text":"Team meeting tmr 3pm"}`, "Team meeting", false, "2024-10-22T15:00:00+08:00", "2024-10-22T16:00:00+08:00", "clock12"},
		{`{"text":"Meeting Friday"}`, "Meeting", true, "2024-10-25", "", "weekday"},
		{`{"text":"3:30pm-4:30pm sync","duration_minutes":30}`, "sync", false, "2024-10-21T15:30:00+08:00", "2024-10-21T16:00:00+08:00", "clock12"},
		{`{"text":"gym 1630","timezone":"Europe/London"}`, "gym", false, "2024-10-21T16:30:00+01:00", "2024-10-21T17:30:00+01:00", "clock24"},
		{`{"text":"rent due 29th","now":"2024-11-05T10:00:00+08:00"}`, "rent due", true, "2024-11-29", "", "ordinal"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/api/parse", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decodeParse(t, rec)
			require.True(t, resp.Found)
			require.NotNil(t, resp.Event)
			assert.Equal(t, tt.title, resp.Event.Title)
			assert.Equal(t, tt.allDay, resp.Event.AllDay)
			assert.Equal(t, tt.start, resp.Event.Start)
			assert.Equal(t, tt.end, resp.Event.End)
			assert.Equal(t, tt.matcher, resp.Matcher)
			assert.Contains(t, resp.ICS, "BEGIN:VEVENT")
			assert.True(t, strings.HasPrefix(resp.CalendarURL, "https://calendar.google.com/calendar/render?"))
		})
	}
}

func TestParse_NoMatch(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, body := range []string{`{"text":"hello there"}`, `{"text":"32nd 5am"}`} {
		rec := do(t, s.Handler(), http.MethodPost, "/api/parse", body)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeParse(t, rec)
		assert.False(t, resp.Found)
		assert.Nil(t, resp.Event)
		assert.Empty(t, resp.ICS)
	}
}

func TestParse_BadRequest(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, body := range []string{
		`not json`,
		`{"text":""}`,
		`{"text":"lunch 1pm","timezone":"Nowhere/Town"}`,
		`{"text":"lunch 1pm","duration_minutes":-1}`,
		`{"text":"lunch 1pm","unknown":true}`,
	} {
		rec := do(t, s.Handler(), http.MethodPost, "/api/parse", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestEventICS(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/event.ics", `{"text":"Team meeting tmr 3pm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "event.ics")
	assert.Contains(t, rec.Body.String(), "DTSTART:20241022T150000")

	rec = do(t, s.Handler(), http.MethodPost, "/api/event.ics", `{"text":"hello there"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestPrefs_PutGetAndApply(t *testing.T) {
	s, store := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/prefs/chat-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/prefs/chat-1", `{"timezone":"Europe/London","duration_minutes":15,"blacklist":["spam"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p, ok := store.Get("chat-1")
	require.True(t, ok)
	assert.Equal(t, 15, p.DurationMinutes)

	rec = do(t, h, http.MethodGet, "/api/prefs/chat-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got prefs.Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, p, got)

	rec = do(t, h, http.MethodPost, "/api/parse", `{"text":"gym 1630","chat_id":"chat-1"}`)
	resp := decodeParse(t, rec)
	require.True(t, resp.Found)
	assert.Equal(t, "2024-10-21T16:30:00+01:00", resp.Event.Start)
	assert.Equal(t, "2024-10-21T16:45:00+01:00", resp.Event.End)

	rec = do(t, h, http.MethodPost, "/api/parse", `{"text":"spam sale 3pm","chat_id":"chat-1"}`)
	resp = decodeParse(t, rec)
	assert.False(t, resp.Found)
	assert.True(t, resp.Filtered)

	rec = do(t, h, http.MethodPut, "/api/prefs/chat-1", `{"timezone":"Bad/Zone"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "pw"}
	})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/parse", `{"text":"lunch 1pm"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader(`{"text":"lunch 1pm"}`))
	req.SetBasicAuth("admin", "pw")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	do(t, h, http.MethodPost, "/api/parse", `{"text":"Team meeting tmr 3pm"}`)
	do(t, h, http.MethodPost, "/api/parse", `{"text":"hello there"}`)
	do(t, h, http.MethodPost, "/api/event.ics", `{"text":"hello there"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `msgcal_messages_total{outcome="event"} 1`)
	assert.Contains(t, body, `msgcal_messages_total{outcome="no_match"} 2`)
	assert.Contains(t, body, `msgcal_matcher_hits_total{matcher="clock12"} 1`)
}

func TestWithMetrics_Nil(t *testing.T) {
	cfg := config.DefaultConfig()

	var s *Server
	require.NotPanics(t, func() {
		s = NewServer(cfg, extract.NewPipeline(nil), nil, WithMetrics(nil))
	})
	require.NotNil(t, s.Metrics())

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var m *Metrics
	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotPanics(t, func() { m.IncrementOutcome(outcomeEvent) })
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "abcd"))
}
