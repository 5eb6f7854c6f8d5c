// Package health serves the bot's liveness and introspection endpoints.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kylejryan/field-report-bot/internal/schema"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Counter reports a gauge such as the number of open sessions.
type Counter interface {
	Len() int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func() int

func (f CounterFunc) Len() int { return f() }

type Server struct {
	sessions Counter
	workers  Counter
	schema   *schema.Schema
	router   chi.Router
	addr     string
	log      *zap.Logger
	started  time.Time
}

func NewServer(addr string, sessions, workers Counter, s *schema.Schema, log *zap.Logger) *Server {
	srv := &Server{
		sessions: sessions,
		workers:  workers,
		schema:   s,
		addr:     addr,
		log:      log,
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", srv.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Get("/fields", srv.handleFields)
	})

	srv.router = r
	return srv
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hs := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting health server", zap.String("addr", s.addr))
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"service":        "fieldbot",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	if s.sessions != nil {
		body["active_sessions"] = s.sessions.Len()
	}
	if s.workers != nil {
		body["busy_sessions"] = s.workers.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

type fieldView struct {
	Key     string     `json:"key"`
	Kind    string     `json:"kind"`
	Label   string     `json:"label,omitempty"`
	Prompt  string     `json:"prompt"`
	Choices [][]string `json:"choices,omitempty"`
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	if s.schema == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no schema loaded"})
		return
	}
	fields := s.schema.Fields()
	out := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldView{
			Key:     f.Key,
			Kind:    string(f.Kind),
			Label:   f.Label,
			Prompt:  f.Prompt,
			Choices: f.Choices(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
