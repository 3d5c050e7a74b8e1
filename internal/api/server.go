// Package api exposes the HTTP interface for the crawler service. It owns
// timing and request logging; the crawl pipeline itself knows nothing about
// HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
	"github.com/FelllGit/codehawks-scrapper/internal/metrics"
)

// Server wires HTTP handlers to the crawl sources and the contest store.
type Server struct {
	router    chi.Router
	sources   map[string]crawler.Source
	store     crawler.ContestStore
	publisher crawler.Publisher
	topic     string
	idGen     crawler.IDGenerator
	clock     crawler.Clock
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The store and
// publisher may be nil; the corresponding steps are then skipped.
func NewServer(
	sources []crawler.Source,
	store crawler.ContestStore,
	publisher crawler.Publisher,
	topic string,
	idGen crawler.IDGenerator,
	clock crawler.Clock,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]crawler.Source, len(sources))
	for _, src := range sources {
		byName[src.Name()] = src
	}
	s := &Server{
		sources:   byName,
		store:     store,
		publisher: publisher,
		topic:     topic,
		idGen:     idGen,
		clock:     clock,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl/{platform}", s.runCrawl)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The browser is launched lazily per crawl; nothing else to probe.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type crawlResponse struct {
	RunID      string            `json:"run_id"`
	Platform   string            `json:"platform"`
	Crawled    int               `json:"crawled"`
	DurationMs int64             `json:"duration_ms"`
	Contests   []crawler.Contest `json:"contests"`
}

// runCrawl executes one synchronous crawl of the named platform, persists
// the batch, publishes a summary, and returns the contests. A crawl that
// partially failed still returns the surviving subset; anomalies are only
// visible through logs and metrics.
func (s *Server) runCrawl(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	source, ok := s.sources[platform]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown platform")
		return
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate run id")
		return
	}

	logger := s.logger.With(zap.String("run_id", runID), zap.String("platform", platform))
	logger.Info("crawl started")
	start := s.clock.Now()

	contests, err := source.Crawl(r.Context())
	if err != nil {
		logger.Error("crawl failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "crawl failed")
		return
	}
	duration := s.clock.Now().Sub(start)
	logger.Info("crawl finished",
		zap.Int("crawled", len(contests)),
		zap.Duration("duration", duration),
	)

	if s.store != nil && len(contests) > 0 {
		if err := s.store.UpsertContests(r.Context(), contests); err != nil {
			// The crawl result is still good; persistence can be retried.
			logger.Error("persist batch failed", zap.Error(err))
		}
	}
	s.publishSummary(r, runID, platform, len(contests), duration)

	writeJSON(w, http.StatusOK, crawlResponse{
		RunID:      runID,
		Platform:   platform,
		Crawled:    len(contests),
		DurationMs: duration.Milliseconds(),
		Contests:   contests,
	})
}

func (s *Server) publishSummary(r *http.Request, runID, platform string, crawled int, duration time.Duration) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	summary := crawler.Summary{
		RunID:      runID,
		Platform:   platform,
		Crawled:    crawled,
		DurationMs: duration.Milliseconds(),
		FinishedAt: s.clock.Now(),
	}
	if _, err := s.publisher.Publish(r.Context(), s.topic, summary); err != nil {
		s.logger.Warn("publish crawl summary failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
