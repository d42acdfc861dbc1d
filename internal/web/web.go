package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"msgcal/internal/config"
	"msgcal/internal/extract"
	appLog "msgcal/internal/log"
	"msgcal/internal/model"
	"msgcal/internal/prefs"
)

const maxBodyBytes = 64 << 10

// Server provides the HTTP API for message parsing and chat preferences.
type Server struct {
	cfg      *config.Config
	pipeline *extract.Pipeline
	prefs    *prefs.Store
	metrics  *Metrics
	now      func() time.Time

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the server clock used when a request has no "now".
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithMetrics replaces the server's metrics. nil is ignored.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer constructs a new Server. store may be nil, in which case chat
// preferences are disabled.
func NewServer(cfg *config.Config, pipeline *extract.Pipeline, store *prefs.Store, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		prefs:    store,
		metrics:  NewMetrics(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps handlers with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="msgcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves h on listen until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, listen string, h http.Handler) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// /health is always public.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			appLog.Info("HTTP basic auth enabled")
			r.Use(s.basicAuthMiddleware)
		}
		r.Post("/api/parse", s.handleParse)
		r.Post("/api/event.ics", s.handleEventICS)
		r.Get("/api/prefs/{chatID}", s.handleGetPrefs)
		r.Put("/api/prefs/{chatID}", s.handlePutPrefs)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// parseRequest is the JSON body for /api/parse and /api/event.ics.
type parseRequest struct {
	Text            string     `json:"text"`
	ChatID          string     `json:"chat_id,omitempty"`
	Timezone        string     `json:"timezone,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Now             *time.Time `json:"now,omitempty"`
}

// parseResponse is the JSON response shape for /api/parse.
type parseResponse struct {
	Found       bool      `json:"found"`
	Filtered    bool      `json:"filtered,omitempty"`
	Matcher     string    `json:"matcher,omitempty"`
	Event       *eventDTO `json:"event,omitempty"`
	ICS         string    `json:"ics,omitempty"`
	CalendarURL string    `json:"calendar_url,omitempty"`
}

// eventDTO is a JSON-friendly view of model.Event. All-day events carry a
// plain date; timed events carry RFC 3339 times with the zone offset.
type eventDTO struct {
	Title    string `json:"title"`
	AllDay   bool   `json:"all_day"`
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
	Timezone string `json:"timezone"`
}

func newEventDTO(ev model.Event) *eventDTO {
	dto := &eventDTO{
		Title:    ev.Title,
		AllDay:   ev.AllDay,
		Timezone: ev.Start.Location().String(),
	}
	if ev.AllDay {
		dto.Start = ev.Start.Format("2006-01-02")
		return dto
	}
	dto.Start = ev.Start.Format(time.RFC3339)
	dto.End = ev.End.Format(time.RFC3339)
	return dto
}

// outcome is the result of running one request through the pipeline.
type outcome struct {
	filtered bool
	result   extract.Result
	err      error
}

// process decodes the request, applies chat preferences and runs the
// pipeline. A non-nil error from process itself is a 400.
func (s *Server) process(w http.ResponseWriter, r *http.Request) (outcome, error) {
	var req parseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return outcome{}, errors.New("invalid JSON body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return outcome{}, errors.New("text is required")
	}
	if req.DurationMinutes < 0 {
		return outcome{}, errors.New("duration_minutes must be positive")
	}

	tz := s.cfg.Timezone
	minutes := s.cfg.DefaultDurationMinutes
	if req.ChatID != "" && s.prefs != nil {
		if p, ok := s.prefs.Get(req.ChatID); ok {
			if !p.Allows(req.Text) {
				return outcome{filtered: true}, nil
			}
			if p.Timezone != "" {
				tz = p.Timezone
			}
			if p.DurationMinutes > 0 {
				minutes = p.DurationMinutes
			}
		}
	}
	if req.Timezone != "" {
		tz = req.Timezone
	}
	if req.DurationMinutes > 0 {
		minutes = req.DurationMinutes
	}

	now := s.now()
	if req.Now != nil {
		now = *req.Now
	}

	rc, err := model.NewResolutionContext(now, tz, minutes)
	if err != nil {
		return outcome{}, err
	}

	res, err := s.pipeline.Run(req.Text, rc)
	return outcome{result: res, err: err}, nil
}

// record updates the counters for one outcome and reports whether an event
// was produced. Export failures are logged here.
func (s *Server) record(r *http.Request, out outcome) bool {
	switch {
	case out.filtered:
		s.metrics.IncrementOutcome(outcomeFiltered)
		return false
	case errors.Is(out.err, extract.ErrNoMatch):
		s.metrics.IncrementOutcome(outcomeNoMatch)
		return false
	case out.err != nil:
		s.metrics.IncrementOutcome(outcomeError)
		appLog.Error("event export failed", out.err, "path", r.URL.Path, "matcher", out.result.Match.Matcher)
		return false
	}
	s.metrics.IncrementOutcome(outcomeEvent)
	s.metrics.IncrementMatcher(out.result.Match.Matcher)
	return true
}

// handleParse extracts an event from a message.
//
// POST /api/parse {"text": "...", "chat_id": "...", "timezone": "...", "duration_minutes": 60, "now": "RFC3339"}
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	out, err := s.process(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.record(r, out) {
		if out.err != nil && !errors.Is(out.err, extract.ErrNoMatch) {
			writeError(w, http.StatusInternalServerError, "failed to export event")
			return
		}
		writeJSON(w, http.StatusOK, parseResponse{Found: false, Filtered: out.filtered})
		return
	}

	res := out.result
	writeJSON(w, http.StatusOK, parseResponse{
		Found:       true,
		Matcher:     res.Match.Matcher,
		Event:       newEventDTO(res.Event),
		ICS:         string(res.ICS),
		CalendarURL: res.CalendarURL,
	})
}

// handleEventICS returns the event as an .ics attachment, or 204 when the
// message has no event.
func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	out, err := s.process(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.record(r, out) {
		if out.err != nil && !errors.Is(out.err, extract.ErrNoMatch) {
			writeError(w, http.StatusInternalServerError, "failed to export event")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="event.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.result.ICS)
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusNotFound, "preferences disabled")
		return
	}
	chatID := chi.URLParam(r, "chatID")
	p, ok := s.prefs.Get(chatID)
	if !ok {
		writeError(w, http.StatusNotFound, "no preferences for chat")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusNotFound, "preferences disabled")
		return
	}
	chatID := chi.URLParam(r, "chatID")

	var p prefs.Preferences
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.prefs.Put(chatID, p); err != nil {
		if errors.Is(err, prefs.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("failed to save preferences", err, "chat_id", chatID)
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	appLog.Info("preferences updated", "chat_id", chatID)
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
