package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"caldigest/internal/config"
	"caldigest/internal/digest"
	appLog "caldigest/internal/log"
)

// Server exposes the structured occurrence list and the rendered digest
// over HTTP, for collaborators that do their own rendering instead of
// consuming the Markdown block.
type Server struct {
	cfg    *config.Config
	engine *digest.Engine
	mux    *http.ServeMux

	// Small TTL cache so repeated API hits do not refetch every feed.
	// Feed caching beyond this belongs to the driver, not the engine.
	cacheMu sync.RWMutex
	cache   *eventsCache
}

const eventsCacheTTL = 30 * time.Second

type eventsCache struct {
	resp      eventsResponse
	updatedAt time.Time
}

type occurrenceDTO struct {
	FeedID      string    `json:"feed_id"`
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type eventsResponse struct {
	Date        string          `json:"date"`
	TimeZone    string          `json:"timezone"`
	Occurrences []occurrenceDTO `json:"occurrences"`
}

// NewServer constructs a Server around a digest engine.
func NewServer(cfg *config.Config, engine *digest.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/digest", s.handleDigest)
	return s
}

// Handler returns the http.Handler for this server, wrapped with basic
// auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
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
			w.Header().Set("WWW-Authenticate", `Basic realm="caldigest", charset="UTF-8"`)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvents serves today's structured occurrence list.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.cacheMu.RLock()
	cached := s.cache
	s.cacheMu.RUnlock()
	if cached != nil && time.Since(cached.updatedAt) < eventsCacheTTL {
		writeJSON(w, http.StatusOK, cached.resp)
		return
	}

	now := time.Now().In(s.engine.Location())
	occs := s.engine.Occurrences(r.Context(), now)

	dtos := make([]occurrenceDTO, 0, len(occs))
	for _, occ := range occs {
		dtos = append(dtos, occurrenceDTO{
			FeedID:      occ.FeedID,
			UID:         occ.UID,
			Summary:     occ.Summary,
			Description: occ.Description,
			Location:    occ.Location,
			AllDay:      occ.AllDay,
			Start:       occ.Start.Time,
			End:         occ.End.Time,
		})
	}

	resp := eventsResponse{
		Date:        now.Format("2006-01-02"),
		TimeZone:    s.engine.Location().String(),
		Occurrences: dtos,
	}

	s.cacheMu.Lock()
	s.cache = &eventsCache{resp: resp, updatedAt: time.Now()}
	s.cacheMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleDigest serves the rendered Markdown section.
func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	out := s.engine.Build(r.Context(), time.Now())
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		appLog.Error("failed to write digest response", err)
	}
}

// Serve runs an HTTP server on cfg.Listen until ctx is canceled.
func Serve(ctx context.Context, cfg *config.Config, engine *digest.Engine) error {
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: NewServer(cfg, engine).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP shutdown failed", err)
		}
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
