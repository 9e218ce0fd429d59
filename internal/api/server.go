package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/tender-crawler/internal/metrics"
	"github.com/JakeFAU/tender-crawler/internal/service"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// TenderService runs crawls on behalf of HTTP callers.
type TenderService interface {
	Crawl(ctx context.Context, limit int) (service.Outcome, error)
}

// Config holds handler settings.
type Config struct {
	DefaultLimit int
	// RequestTimeout bounds a whole request, crawl included. Zero disables it.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the tender service.
type Server struct {
	router chi.Router
	svc    TenderService
	cfg    Config
	logger *zap.Logger
}

type tendersResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Tenders []tender.Record `json:"tenders"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc TenderService, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	if cfg.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(cfg.RequestTimeout))
	}

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/tenders", s.getTenders)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getTenders(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.DefaultLimit
	if raw := r.URL.Query().Get("max_tenders"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "max_tenders must be an integer")
			return
		}
		limit = n
	}

	out, err := s.svc.Crawl(r.Context(), limit)
	if err != nil {
		s.logger.Error("crawl failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	records := out.Records
	if records == nil {
		records = []tender.Record{}
	}
	s.writeJSON(w, http.StatusOK, tendersResponse{
		Success: true,
		Count:   len(records),
		Tenders: records,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"detail": msg})
}
