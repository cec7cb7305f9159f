package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"icstable/internal/config"
	"icstable/internal/ics"
	appLog "icstable/internal/log"
	"icstable/internal/metrics"
	"icstable/internal/refresh"
	"icstable/internal/transcode"
	"icstable/internal/value"
)

const (
	maxBodyBytes     = 10 << 20
	sourcesCacheTTL  = 30 * time.Second
	shutdownDeadline = 5 * time.Second
)

// Server exposes the transcoder over HTTP.
type Server struct {
	cfg    *config.Config
	runner *refresh.Runner
	mux    *http.ServeMux

	// Cached /api/sources response so repeated requests do not refetch
	// every feed.
	sourcesMu    sync.RWMutex
	sourcesCache *sourcesCache
}

type sourcesCache struct {
	format    value.Format
	body      []byte
	updatedAt time.Time
}

// NewServer constructs a Server. runner may be nil when no sources are
// configured.
func NewServer(cfg *config.Config, runner *refresh.Runner) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in Basic Auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/from-ics", s.handleFromICS)
	s.mux.HandleFunc("GET /api/sources", s.handleSources)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware protects everything except /health.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="icstable", charset="UTF-8"`)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleFromICS transcodes the request body.
//
// POST /api/from-ics?format=json|yaml&strict=1&folded=1
func (s *Server) handleFromICS(w http.ResponseWriter, r *http.Request) {
	format, err := s.formatFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	q := r.URL.Query()
	opts := ics.Options{
		Strict: s.cfg.Strict || parseBool(q.Get("strict")),
		Folded: parseBool(q.Get("folded")),
	}

	start := time.Now()
	v := transcode.FromICS(string(body), value.Span{Start: 0, End: len(body)}, opts)
	sum := transcode.Summarize(v)
	metrics.Observe("http", sum, time.Since(start))
	appLog.Debug("api from-ics", "bytes", len(body), "documents", sum.Documents, "failed", sum.Failed)

	writeValue(w, http.StatusOK, v, format)
}

// handleSources transcodes every configured source and returns a record
// keyed by source id.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	format, err := s.formatFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.sourcesMu.RLock()
	sc := s.sourcesCache
	s.sourcesMu.RUnlock()
	if sc != nil && sc.format == format && time.Since(sc.updatedAt) < sourcesCacheTTL {
		writeRaw(w, http.StatusOK, sc.body, format)
		return
	}

	rec := value.NewRecord(len(s.cfg.Sources))
	if s.runner != nil {
		outs, errs := s.runner.Run(r.Context(), refresh.SourcesFromConfig(s.cfg), "http")
		if len(errs) > 0 {
			appLog.Error("api sources: one or more fetches failed", errors.Join(errs...), "error_count", len(errs))
		}
		for _, o := range outs {
			rec.Push(o.Source.ID, o.Value)
		}
	}

	var buf bytes.Buffer
	if err := value.Encode(&buf, value.RecordOf(rec, value.Span{}), format); err != nil {
		appLog.Error("api sources: encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	s.sourcesMu.Lock()
	s.sourcesCache = &sourcesCache{format: format, body: buf.Bytes(), updatedAt: time.Now()}
	s.sourcesMu.Unlock()

	writeRaw(w, http.StatusOK, buf.Bytes(), format)
}

func (s *Server) formatFor(r *http.Request) (value.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return value.ParseFormat(f)
	}
	return value.ParseFormat(s.cfg.Format)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		appLog.Info("HTTP server stopped")
		return nil
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func writeValue(w http.ResponseWriter, status int, v value.Value, format value.Format) {
	var buf bytes.Buffer
	if err := value.Encode(&buf, v, format); err != nil {
		appLog.Error("failed to encode response", err)
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeRaw(w, status, buf.Bytes(), format)
}

func writeRaw(w http.ResponseWriter, status int, body []byte, format value.Format) {
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		appLog.Error("failed to write response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
