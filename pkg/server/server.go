// Package server exposes the feedback pipeline over HTTP.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/internal/store"
	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/pipeline"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

//go:embed static/index.html
var static embed.FS

// Server provides the HTTP API and dashboard.
type Server struct {
	pipeline *pipeline.Pipeline
	log      *logger.Logger
	port     int
}

// New creates a new HTTP server.
func New(p *pipeline.Pipeline, log *logger.Logger, port int) *Server {
	if port == 0 {
		port = 3000
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Server{pipeline: p, log: log, port: port}
}

// Handler returns the routed handler wrapped in CORS and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/init", s.handleInit)
	mux.HandleFunc("POST /api/feedback", s.handleSubmit)
	mux.HandleFunc("GET /api/feedback", s.handleList)
	mux.HandleFunc("GET /api/feedback/counts", s.handleCounts)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/themes", s.handleThemes)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/seed", s.handleSeed)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.handleDashboard)

	return s.accessLog(cors(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("feedpulse server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("http request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start).String())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Init(r.Context()); err != nil {
		s.fail(w, http.StatusInternalServerError, "init", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub feedback.Submission
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, http.StatusBadRequest, "submit", errors.New("request body too large"))
			return
		}
		s.fail(w, http.StatusBadRequest, "submit", errors.New("invalid JSON body"))
		return
	}

	rec, err := s.pipeline.Submit(r.Context(), sub)
	if err != nil {
		var verr *feedback.ValidationError
		if errors.As(err, &verr) {
			s.fail(w, http.StatusBadRequest, "submit", err)
			return
		}
		s.fail(w, http.StatusInternalServerError, "submit", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"id":       rec.ID,
		"analysis": rec.Annotation(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOpts{
		Source:    q.Get("source"),
		Sentiment: q.Get("sentiment"),
		Urgency:   q.Get("urgency"),
		Limit:     queryInt(q.Get("limit"), store.DefaultListLimit),
		Offset:    queryInt(q.Get("offset"), 0),
	}

	records, total, err := s.pipeline.List(r.Context(), opts)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "list", err)
		return
	}
	if records == nil {
		records = []feedback.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"feedback": records,
		"total":    total,
	})
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	dim, err := store.ParseDimension(r.URL.Query().Get("by"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "counts", err)
		return
	}

	counts, err := s.pipeline.CountBy(r.Context(), dim)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "counts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"by": dim, "counts": counts})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.pipeline.Stats(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	tallies, err := s.pipeline.Themes(r.Context(), queryInt(r.URL.Query().Get("limit"), 20))
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "themes", err)
		return
	}
	if tallies == nil {
		tallies = []store.ThemeTally{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": tallies})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, n, err := s.pipeline.Summary(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":       summary,
		"feedbackCount": n,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Reset(r.Context()); err != nil {
		s.fail(w, http.StatusInternalServerError, "reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	n, err := s.pipeline.Seed(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "seed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "imported": n})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) fail(w http.ResponseWriter, status int, op string, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "op", op, "error", err)
	}
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}

// queryInt parses a non-negative integer, returning def when v is empty or invalid.
func queryInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
