package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bstt/internal/config"
	appLog "bstt/internal/log"
	"bstt/internal/model"
	"bstt/internal/timetable"
)

const eventsCacheTTL = 30 * time.Second

// Loader fetches the current flat event list.
type Loader func(ctx context.Context) ([]model.Event, error)

// Server exposes the status line and day view as JSON.
type Server struct {
	cfg    *config.Config
	load   Loader
	loc    *time.Location
	tables timetable.Tables
	now    func() time.Time
	mux    *http.ServeMux

	eventsMu    sync.RWMutex
	eventsCache *eventsCache
}

type eventsCache struct {
	events    []model.Event
	updatedAt time.Time
}

// NewServer constructs a Server. load is called at most once per
// eventsCacheTTL.
func NewServer(cfg *config.Config, load Loader) *Server {
	s := &Server{
		cfg:    cfg,
		load:   load,
		loc:    cfg.Location(),
		tables: timetable.DefaultTables(),
		now:    time.Now,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Invalidate drops the cached events so the next request reloads them.
func (s *Server) Invalidate() {
	s.eventsMu.Lock()
	s.eventsCache = nil
	s.eventsMu.Unlock()
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="bstt", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/day", s.handleDay)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// events returns cached events when fresh, otherwise reloads them.
func (s *Server) events(ctx context.Context) ([]model.Event, error) {
	now := s.now()

	s.eventsMu.RLock()
	ec := s.eventsCache
	s.eventsMu.RUnlock()
	if ec != nil && now.Sub(ec.updatedAt) < eventsCacheTTL {
		return ec.events, nil
	}

	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	s.eventsMu.Lock()
	s.eventsCache = &eventsCache{events: events, updatedAt: s.now()}
	s.eventsMu.Unlock()
	return events, nil
}

type slotDTO struct {
	Title    string    `json:"title"`
	Type     string    `json:"type"`
	Location string    `json:"location"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end,omitzero"`
}

type statusResponse struct {
	Kind    string   `json:"kind"`
	Line    string   `json:"line"`
	Current *slotDTO `json:"current,omitempty"`
	Next    *slotDTO `json:"next,omitempty"`
}

func toSlotDTO(sl *timetable.Slot) *slotDTO {
	if sl == nil {
		return nil
	}
	return &slotDTO{
		Title:    sl.Event.Title,
		Type:     sl.Event.EventType,
		Location: sl.Event.Location,
		Start:    sl.Start,
		End:      sl.End,
	}
}

// handleStatus returns the status-bar line. Upstream failures are reported
// as the error sentinel line with 502, matching mini mode.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	events, err := s.events(r.Context())
	if err != nil {
		appLog.Error("api status: load failed", err)
		writeJSON(w, http.StatusBadGateway, statusResponse{Kind: "error", Line: timetable.ErrorLine})
		return
	}

	st := timetable.Project(events, s.now().In(s.loc), s.tables)
	writeJSON(w, http.StatusOK, statusResponse{
		Kind:    st.Kind.String(),
		Line:    st.Line,
		Current: toSlotDTO(st.Current),
		Next:    toSlotDTO(st.Next),
	})
}

// handleDay returns the rows for today plus ?offset=N days.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid day offset")
			return
		}
		offset = n
	}

	events, err := s.events(r.Context())
	if err != nil {
		appLog.Error("api day: load failed", err)
		writeError(w, http.StatusBadGateway, "failed to fetch events")
		return
	}

	today := s.now().In(s.loc)
	view := timetable.BuildDay(events, today.AddDate(0, 0, offset), today)
	writeJSON(w, http.StatusOK, view)
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
